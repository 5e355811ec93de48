// Package adapters はcompanyフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"company_backend/internal/feature/company/domain"
	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/usecase"
)

// pgUniqueViolation はPostgresのユニーク制約違反のSQLSTATEです。
const pgUniqueViolation = "23505"

// companyPostgres はCompanyRepositoryインターフェースのPostgres実装です。
// GORMを使用してデータベース操作を行います。
type companyPostgres struct {
	db *gorm.DB
}

// companyPostgresがCompanyRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.CompanyRepository = (*companyPostgres)(nil)

// NewCompanyRepository は指定されたgorm.DB接続でcompanyPostgresの新しいインスタンスを生成します。
func NewCompanyRepository(db *gorm.DB) *companyPostgres {
	return &companyPostgres{db: db}
}

// FindByID はIDで企業を取得します。
// 企業が存在しない場合、domain.ErrCompanyNotFoundを返します。
func (r *companyPostgres) FindByID(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	var c entity.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByIDForUpdate は更新の前提となる企業をIDで取得します。
func (r *companyPostgres) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return r.FindByID(ctx, id)
}

// FindByISIN はISINで企業を取得します。
// 企業が存在しない場合、domain.ErrCompanyNotFoundを返します。
func (r *companyPostgres) FindByISIN(ctx context.Context, isin string) (*entity.Company, error) {
	var c entity.Company
	if err := r.db.WithContext(ctx).Where("isin = ?", isin).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ExistsByISIN は指定ISINを持つ企業が存在するかを返します。excludeIDの企業は除外します。
func (r *companyPostgres) ExistsByISIN(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&entity.Company{}).Where("isin = ?", isin)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List は名前順（同名の場合はID順）にすべての企業を返します。
func (r *companyPostgres) List(ctx context.Context) ([]entity.Company, error) {
	var companies []entity.Company
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Order("id ASC").
		Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// Create は企業をデータベースに追加します。
// ISINが重複する場合、domain.ErrDuplicateISINを返します。
func (r *companyPostgres) Create(ctx context.Context, c *entity.Company) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateISIN
		}
		return err
	}
	return nil
}

// Update はID・作成日時以外の全カラムを上書きします。
// Websiteがnilの場合はNULLに更新されます。
func (r *companyPostgres) Update(ctx context.Context, c *entity.Company) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Company{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":         c.Name,
			"stock_ticker": c.StockTicker,
			"exchange":     c.Exchange,
			"isin":         c.ISIN,
			"website":      c.Website,
			"updated_at":   c.UpdatedAt,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.ErrDuplicateISIN
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCompanyNotFound
	}
	return nil
}

// Delete は企業を物理削除します。
func (r *companyPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Company{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCompanyNotFound
	}
	return nil
}

// isUniqueViolation はエラーがユニーク制約違反かどうかを判定します。
// TranslateErrorを有効にしたGORM、pgxのPgError、SQLiteのエラーメッセージに対応します。
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
