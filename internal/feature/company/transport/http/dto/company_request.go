// Package dto はcompanyフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"bytes"
	"encoding/json"

	"company_backend/internal/feature/company/domain/validation"
	"company_backend/internal/feature/company/usecase"
)

// CompanyRequest は作成（POST）・全体更新（PUT）のリクエストボディです。
// 必須フィールドの検証はusecase層の検証ルールで行うため、bindingタグは付けません。
type CompanyRequest struct {
	Name        string  `json:"name"`
	StockTicker string  `json:"stockTicker"`
	Exchange    string  `json:"exchange"`
	ISIN        string  `json:"isin"`
	Website     *string `json:"website"`
}

// ToInput はリクエストをusecaseの入力に変換します。
func (r CompanyRequest) ToInput() usecase.CompanyInput {
	return usecase.CompanyInput{
		Name:        r.Name,
		StockTicker: r.StockTicker,
		Exchange:    r.Exchange,
		ISIN:        r.ISIN,
		Website:     r.Website,
	}
}

// OptionalString はJSONでキーが送信されたかどうかを記録する文字列です。
// キーが存在しない場合UnmarshalJSONは呼ばれないため、Setはfalseのままになります。
type OptionalString struct {
	Set   bool
	Value *string // nilは明示的なnull
}

// UnmarshalJSON は文字列またはnullを受け付けます。
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CompanyPatchRequest は部分更新（PATCH）のリクエストボディです。
type CompanyPatchRequest struct {
	Name        OptionalString `json:"name"`
	StockTicker OptionalString `json:"stockTicker"`
	Exchange    OptionalString `json:"exchange"`
	ISIN        OptionalString `json:"isin"`
	Website     OptionalString `json:"website"`
}

// ToPatch は送信されたフィールドのみを含むusecase.CompanyPatchを作成します。
func (r CompanyPatchRequest) ToPatch() usecase.CompanyPatch {
	var p usecase.CompanyPatch
	for _, f := range []struct {
		name  string
		value OptionalString
	}{
		{validation.FieldName, r.Name},
		{validation.FieldStockTicker, r.StockTicker},
		{validation.FieldExchange, r.Exchange},
		{validation.FieldISIN, r.ISIN},
		{validation.FieldWebsite, r.Website},
	} {
		if f.value.Set {
			p.Set(f.name, f.value.Value)
		}
	}
	return p
}
