package usecase

import (
	"context"

	"github.com/google/uuid"

	"company_backend/internal/feature/company/domain"
	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/domain/validation"
)

// CompanyPatch は部分更新リクエストで明示的に送信されたフィールドの集合です。
// 「送信されなかった」フィールドと「nullや空文字が明示的に送信された」フィールドを区別します。
// ゼロ値は空の集合として利用できます。
type CompanyPatch struct {
	order  []string
	values map[string]*string
}

// Set はフィールドを集合に追加します。valueがnilの場合は明示的なnullを表します。
// 同じフィールドを再度設定した場合は値を上書きし、順序は最初の設定時のものを維持します。
func (p *CompanyPatch) Set(field string, value *string) {
	if p.values == nil {
		p.values = make(map[string]*string)
	}
	if _, ok := p.values[field]; !ok {
		p.order = append(p.order, field)
	}
	if value != nil {
		v := *value
		value = &v
	}
	p.values[field] = value
}

// Lookup はフィールドの値と、そのフィールドが送信されたかどうかを返します。
func (p CompanyPatch) Lookup(field string) (*string, bool) {
	v, ok := p.values[field]
	return v, ok
}

// Fields は送信されたフィールド名を設定順に返します。
func (p CompanyPatch) Fields() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len は送信されたフィールドの数を返します。
func (p CompanyPatch) Len() int {
	return len(p.order)
}

// Patch は送信されたフィールドのみを検証・適用して企業を更新します。
//
//  1. IDで企業を読み込み、存在しなければdomain.ErrCompanyNotFound
//  2. 送信されたフィールドのみを検証し、1つでも違反があれば何も適用せずdomain.ValidationError
//  3. ISINが送信された場合は自身を除いて重複を確認し、重複があればdomain.ConflictError
//  4. 送信されたフィールドのみを適用（送信されなかったフィールドは変更しない）
//  5. 更新日時を現在時刻に設定して永続化
//
// 空の集合は更新日時のみを変更する正当な操作です。
func (u *CompanyUsecase) Patch(ctx context.Context, id uuid.UUID, patch CompanyPatch) (*entity.Company, error) {
	company, err := u.repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := validation.Validate(patch.values); errs != nil {
		return nil, &domain.ValidationError{Fields: errs}
	}

	if isin, ok := patch.Lookup(validation.FieldISIN); ok {
		if err := u.ensureISINAvailable(ctx, *isin, &id); err != nil {
			return nil, err
		}
	}

	applyPatch(company, patch)
	company.UpdatedAt = u.timestamp()

	if err := u.repo.Update(ctx, company); err != nil {
		return nil, conflictOr(err, company.ISIN)
	}
	return company, nil
}

// applyPatch は検証済みのフィールドを企業に適用します。
func applyPatch(c *entity.Company, patch CompanyPatch) {
	for _, field := range patch.order {
		value := patch.values[field]
		switch field {
		case validation.FieldName:
			c.Name = *value
		case validation.FieldStockTicker:
			c.StockTicker = *value
		case validation.FieldExchange:
			c.Exchange = *value
		case validation.FieldISIN:
			c.ISIN = *value
		case validation.FieldWebsite:
			c.Website = validation.Optional(value)
		}
	}
}
