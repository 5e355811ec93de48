// Package usecase はcompanyフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"company_backend/internal/feature/company/domain"
	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/domain/validation"
)

// CompanyRepository は企業エンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type CompanyRepository interface {
	// FindByID はIDで企業を取得します。存在しない場合はdomain.ErrCompanyNotFoundを返します。
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Company, error)

	// FindByIDForUpdate は更新の前提となる企業をIDで取得します。キャッシュを経由せず常に永続化層から読み込みます。
	// 存在しない場合はdomain.ErrCompanyNotFoundを返します。
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Company, error)

	// FindByISIN はISINで企業を取得します。存在しない場合はdomain.ErrCompanyNotFoundを返します。
	FindByISIN(ctx context.Context, isin string) (*entity.Company, error)

	// ExistsByISIN は指定ISINを持つ企業が存在するかを返します。
	// excludeIDが指定された場合、そのIDの企業は判定から除外します。
	ExistsByISIN(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error)

	// List はすべての企業を返します。
	List(ctx context.Context) ([]entity.Company, error)

	// Create は新しい企業を永続化します。
	// ISINのユニーク制約に違反した場合はdomain.ErrDuplicateISINを返します。
	Create(ctx context.Context, company *entity.Company) error

	// Update は既存の企業のID・作成日時以外の全フィールドを上書きします。
	// 存在しない場合はdomain.ErrCompanyNotFound、ISIN重複時はdomain.ErrDuplicateISINを返します。
	Update(ctx context.Context, company *entity.Company) error

	// Delete は企業を物理削除します。存在しない場合はdomain.ErrCompanyNotFoundを返します。
	Delete(ctx context.Context, id uuid.UUID) error
}

// CompanyInput は作成・全体更新で受け取る全フィールドです。
type CompanyInput struct {
	Name        string
	StockTicker string
	Exchange    string
	ISIN        string
	Website     *string
}

// values は検証用にフィールド名から値へのマップを作成します。
func (in CompanyInput) values() map[string]*string {
	return map[string]*string{
		validation.FieldName:        &in.Name,
		validation.FieldStockTicker: &in.StockTicker,
		validation.FieldExchange:    &in.Exchange,
		validation.FieldISIN:        &in.ISIN,
		validation.FieldWebsite:     in.Website,
	}
}

// CompanyUsecase は企業に関するビジネスロジックを提供します。
type CompanyUsecase struct {
	repo  CompanyRepository
	now   func() time.Time
	newID func() uuid.UUID
}

// NewCompanyUsecase は指定されたリポジトリでCompanyUsecaseを生成します。
func NewCompanyUsecase(repo CompanyRepository) *CompanyUsecase {
	return &CompanyUsecase{
		repo:  repo,
		now:   time.Now,
		newID: uuid.New,
	}
}

// timestamp はPostgresの精度（マイクロ秒）に揃えたUTCの現在時刻を返します。
func (u *CompanyUsecase) timestamp() time.Time {
	return u.now().UTC().Truncate(time.Microsecond)
}

// Get はIDで企業を取得します。
func (u *CompanyUsecase) Get(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return u.repo.FindByID(ctx, id)
}

// GetByISIN はISINで企業を取得します。
func (u *CompanyUsecase) GetByISIN(ctx context.Context, isin string) (*entity.Company, error) {
	return u.repo.FindByISIN(ctx, isin)
}

// List はすべての企業を返します。
func (u *CompanyUsecase) List(ctx context.Context) ([]entity.Company, error) {
	return u.repo.List(ctx)
}

// Create は全フィールドを検証し、ISINの重複を確認した上で新しい企業を登録します。
// ID・作成日時・更新日時はサーバー側で割り当てます。
func (u *CompanyUsecase) Create(ctx context.Context, in CompanyInput) (*entity.Company, error) {
	if errs := validation.Validate(in.values()); errs != nil {
		return nil, &domain.ValidationError{Fields: errs}
	}
	if err := u.ensureISINAvailable(ctx, in.ISIN, nil); err != nil {
		return nil, err
	}

	now := u.timestamp()
	company := &entity.Company{
		ID:          u.newID(),
		Name:        in.Name,
		StockTicker: in.StockTicker,
		Exchange:    in.Exchange,
		ISIN:        in.ISIN,
		Website:     validation.Optional(in.Website),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.repo.Create(ctx, company); err != nil {
		return nil, conflictOr(err, company.ISIN)
	}
	return company, nil
}

// Replace は既存の企業の全フィールドを上書きします。
// 部分更新と異なり、入力にないフィールドという概念はなく、すべて必須として検証します。
func (u *CompanyUsecase) Replace(ctx context.Context, id uuid.UUID, in CompanyInput) (*entity.Company, error) {
	if errs := validation.Validate(in.values()); errs != nil {
		return nil, &domain.ValidationError{Fields: errs}
	}

	company, err := u.repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.ensureISINAvailable(ctx, in.ISIN, &id); err != nil {
		return nil, err
	}

	company.Name = in.Name
	company.StockTicker = in.StockTicker
	company.Exchange = in.Exchange
	company.ISIN = in.ISIN
	company.Website = validation.Optional(in.Website)
	company.UpdatedAt = u.timestamp()

	if err := u.repo.Update(ctx, company); err != nil {
		return nil, conflictOr(err, company.ISIN)
	}
	return company, nil
}

// Delete は企業を削除します。
func (u *CompanyUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	return u.repo.Delete(ctx, id)
}

// ensureISINAvailable はISINが他の企業に使われていないことを確認します。
// この確認は早期リターンのためのもので、最終的な一意性はストアのユニーク制約が保証します。
func (u *CompanyUsecase) ensureISINAvailable(ctx context.Context, isin string, excludeID *uuid.UUID) error {
	exists, err := u.repo.ExistsByISIN(ctx, isin, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return &domain.ConflictError{ISIN: isin}
	}
	return nil
}

// conflictOr はストアのISIN重複エラーをConflictErrorに変換し、それ以外はそのまま返します。
func conflictOr(err error, isin string) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return err
	}
	if errors.Is(err, domain.ErrDuplicateISIN) {
		return &domain.ConflictError{ISIN: isin}
	}
	return err
}
