// Package handler はcompanyフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"company_backend/internal/feature/company/domain"
	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/transport/http/dto"
	"company_backend/internal/feature/company/usecase"
)

// CompanyUsecase は企業操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type CompanyUsecase interface {
	List(ctx context.Context) ([]entity.Company, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Company, error)
	GetByISIN(ctx context.Context, isin string) (*entity.Company, error)
	Create(ctx context.Context, in usecase.CompanyInput) (*entity.Company, error)
	Replace(ctx context.Context, id uuid.UUID, in usecase.CompanyInput) (*entity.Company, error)
	Patch(ctx context.Context, id uuid.UUID, patch usecase.CompanyPatch) (*entity.Company, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CompanyHandler は企業に関するHTTPリクエストを処理します。
type CompanyHandler struct {
	uc CompanyUsecase
}

// NewCompanyHandler は新しいCompanyHandlerを作成します。
func NewCompanyHandler(uc CompanyUsecase) *CompanyHandler {
	return &CompanyHandler{uc: uc}
}

// List は企業の一覧を返します。
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.uc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, dto.NewCompanyResponse(&companies[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get はIDで企業を1件返します。
func (h *CompanyHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	company, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCompanyResponse(company))
}

// GetByISIN はISINで企業を1件返します。
func (h *CompanyHandler) GetByISIN(c *gin.Context) {
	company, err := h.uc.GetByISIN(c.Request.Context(), c.Param("isin"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCompanyResponse(company))
}

// Create は企業登録APIエンドポイントを処理します。
// - 成功時は201とLocationヘッダーを返却
// - 検証エラー時は400、ISIN重複時は409を返却
func (h *CompanyHandler) Create(c *gin.Context) {
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("create company: invalid request body", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	company, err := h.uc.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("company created", "id", company.ID, "isin", company.ISIN, "remote_addr", c.ClientIP())
	c.Header("Location", c.FullPath()+"/"+company.ID.String())
	c.JSON(http.StatusCreated, dto.NewCompanyResponse(company))
}

// Replace は企業の全体更新（PUT）を処理します。
func (h *CompanyHandler) Replace(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("replace company: invalid request body", "error", err, "id", id, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	company, err := h.uc.Replace(c.Request.Context(), id, req.ToInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("company replaced", "id", company.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.NewCompanyResponse(company))
}

// Patch は企業の部分更新（PATCH）を処理します。
// リクエストボディに含まれるフィールドのみを更新し、含まれないフィールドは変更しません。
func (h *CompanyHandler) Patch(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.CompanyPatchRequest
	if err := bindJSONObject(c, &req); err != nil {
		slog.Warn("patch company: invalid request body", "error", err, "id", id, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}
	patch := req.ToPatch()
	company, err := h.uc.Patch(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("company patched", "id", company.ID, "fields", patch.Fields(), "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.NewCompanyResponse(company))
}

// errNotJSONObject はリクエストボディがJSONオブジェクトでないことを表します。
var errNotJSONObject = errors.New("request body must be a JSON object")

// bindJSONObject はリクエストボディがJSONオブジェクトである場合のみobjにバインドします。
// nullや配列はフィールドの集合として解釈できないため拒否します。
func bindJSONObject(c *gin.Context, obj any) error {
	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotJSONObject
	}
	return binding.JSON.BindBody(body, obj)
}

// Delete は企業を削除し、成功時は204を返します。
func (h *CompanyHandler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	slog.Info("company deleted", "id", id, "remote_addr", c.ClientIP())
	c.Status(http.StatusNoContent)
}

// bindID はパスパラメータ:idをUUIDとして解釈します。
// 失敗した場合は400を書き込み、falseを返します。
func bindID(c *gin.Context) (uuid.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid company id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError はusecaseのエラーをHTTPステータスに変換して書き込みます。
// 想定外のエラーの詳細はログにのみ出力し、レスポンスには含めません。
func (h *CompanyHandler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		slog.Warn("company validation failed", "fields", verr.Fields, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &conflict):
		slog.Warn("company isin conflict", "isin", conflict.ISIN, "remote_addr", c.ClientIP())
		c.JSON(http.StatusConflict, dto.ConflictResponse{Error: domain.ErrDuplicateISIN.Error(), ISIN: conflict.ISIN})
	case errors.Is(err, domain.ErrCompanyNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: domain.ErrCompanyNotFound.Error()})
	default:
		slog.Error("company request failed", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
