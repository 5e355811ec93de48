// Package validation はCompanyのフィールド単位の検証ルールを提供します。
// すべての関数は副作用を持たず、I/Oも行いません。
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// フィールド名はAPIのJSON名と一致させます。
const (
	FieldName        = "name"
	FieldStockTicker = "stockTicker"
	FieldExchange    = "exchange"
	FieldISIN        = "isin"
	FieldWebsite     = "website"
)

const (
	MaxNameLength        = 200
	MaxStockTickerLength = 10
	MaxExchangeLength    = 100
	MaxWebsiteLength     = 500
	ISINLength           = 12
)

// ISINPattern はISINの形式（国コード2文字 + 英数字9文字 + チェックディジット1文字）です。
const ISINPattern = `^[A-Z]{2}[A-Z0-9]{9}[0-9]$`

var isinRegexp = regexp.MustCompile(ISINPattern)

// rule は1フィールド分の検証ルールです。
type rule struct {
	required bool
	tags     string
}

// Fields はパッチ可能なフィールドを正規の順序で並べたものです。
var Fields = []string{FieldName, FieldStockTicker, FieldExchange, FieldISIN, FieldWebsite}

var rules = map[string]rule{
	FieldName:        {required: true, tags: fmt.Sprintf("max=%d", MaxNameLength)},
	FieldStockTicker: {required: true, tags: fmt.Sprintf("max=%d", MaxStockTickerLength)},
	FieldExchange:    {required: true, tags: fmt.Sprintf("max=%d", MaxExchangeLength)},
	FieldISIN:        {required: true, tags: fmt.Sprintf("len=%d,isin", ISINLength)},
	FieldWebsite:     {tags: fmt.Sprintf("max=%d,url", MaxWebsiteLength)},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 登録に失敗するのはタグ名が空の場合のみ
	if err := v.RegisterValidation("isin", func(fl validator.FieldLevel) bool {
		return IsISIN(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Required は値が存在し、空白のみではないことを確認します。
func Required(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

// MaxLength は値の文字数がmax以下であることを確認します。
func MaxLength(value string, max int) bool {
	return utf8.RuneCountInString(value) <= max
}

// IsISIN は値がISIN形式に一致するかを確認します。
func IsISIN(value string) bool {
	return isinRegexp.MatchString(value)
}

// IsURL は値がスキーム付きの絶対URLとして解釈できるかを確認します。
func IsURL(value string) bool {
	return validate.Var(value, "url") == nil
}

// IsKnownField はfieldが検証ルールを持つフィールドかどうかを返します。
func IsKnownField(field string) bool {
	_, ok := rules[field]
	return ok
}

// Check は1フィールドの値を検証し、違反があればメッセージを返します。
// valueがnilの場合は明示的なnullを表します。違反がなければ空文字を返します。
func Check(field string, value *string) string {
	r, ok := rules[field]
	if !ok {
		return "is not a recognized field"
	}
	if !Required(value) {
		if r.required {
			return "is required"
		}
		// 任意項目のnull・空文字は「値をクリアする」意味
		return ""
	}
	if err := validate.Var(*value, r.tags); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return message(verrs[0])
		}
		return "is invalid"
	}
	return ""
}

// Validate は渡されたフィールドのみを検証し、フィールド名からメッセージへのマップを返します。
// 違反がない場合はnilを返します。
func Validate(values map[string]*string) map[string]string {
	var errs map[string]string
	for field, value := range values {
		if msg := Check(field, value); msg != "" {
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[field] = msg
		}
	}
	return errs
}

// Optional は任意項目の値を正規化します。空白のみの値はnilとして扱います。
func Optional(value *string) *string {
	if !Required(value) {
		return nil
	}
	v := *value
	return &v
}

// message はvalidatorのエラーを利用者向けのメッセージに変換します。
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "isin":
		return "must match " + ISINPattern
	case "url":
		return "must be a well-formed absolute URL"
	default:
		return "is invalid"
	}
}
