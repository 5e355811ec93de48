package dto

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"company_backend/internal/feature/company/domain/entity"
)

// CompanyResponse はAPIレスポンスの企業表現です。
type CompanyResponse struct {
	ID          openapi_types.UUID `json:"id"`
	Name        string             `json:"name"`
	StockTicker string             `json:"stockTicker"`
	Exchange    string             `json:"exchange"`
	ISIN        string             `json:"isin"`
	Website     *string            `json:"website"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewCompanyResponse はエンティティをレスポンスに変換します。
func NewCompanyResponse(c *entity.Company) CompanyResponse {
	return CompanyResponse{
		ID:          c.ID,
		Name:        c.Name,
		StockTicker: c.StockTicker,
		Exchange:    c.Exchange,
		ISIN:        c.ISIN,
		Website:     c.Website,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse は検証エラー時（400）のレスポンスです。
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// ConflictResponse はISIN重複時（409）のレスポンスです。
type ConflictResponse struct {
	Error string `json:"error"`
	ISIN  string `json:"isin"`
}
