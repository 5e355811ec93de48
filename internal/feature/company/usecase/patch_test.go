package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company_backend/internal/feature/company/domain"
	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/domain/validation"
)

// TestCompanyPatch はフィールド集合の追加順序と値のコピーを検証します。
func TestCompanyPatch(t *testing.T) {
	t.Parallel()

	var p CompanyPatch
	assert.Equal(t, 0, p.Len())
	_, ok := p.Lookup(validation.FieldName)
	assert.False(t, ok, "zero value is an empty set")

	name := "Apple"
	p.Set(validation.FieldWebsite, nil)
	p.Set(validation.FieldName, &name)
	p.Set(validation.FieldWebsite, strptr("http://www.apple.com"))
	name = "mutated"

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{validation.FieldWebsite, validation.FieldName}, p.Fields())

	v, ok := p.Lookup(validation.FieldName)
	require.True(t, ok)
	assert.Equal(t, "Apple", *v, "Set copies the value")

	v, ok = p.Lookup(validation.FieldWebsite)
	require.True(t, ok)
	assert.Equal(t, "http://www.apple.com", *v)

	fields := p.Fields()
	fields[0] = "changed"
	assert.Equal(t, validation.FieldWebsite, p.Fields()[0], "Fields returns a copy")
}

// patchRepo はapple()を返し、更新内容を記録するリポジトリを生成します。
func patchRepo() *mockCompanyRepository {
	return &mockCompanyRepository{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
			if id != fixedID {
				return nil, domain.ErrCompanyNotFound
			}
			return apple(), nil
		},
	}
}

func patchOf(kv ...any) CompanyPatch {
	var p CompanyPatch
	for i := 0; i < len(kv); i += 2 {
		field := kv[i].(string)
		switch v := kv[i+1].(type) {
		case nil:
			p.Set(field, nil)
		case string:
			p.Set(field, &v)
		}
	}
	return p
}

// TestCompanyUsecase_Patch_Success は送信されたフィールドのみが変更されることを検証します。
func TestCompanyUsecase_Patch_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		patch  CompanyPatch
		expect func(c *entity.Company)
	}{
		{
			name:   "empty set only refreshes updated at",
			patch:  CompanyPatch{},
			expect: func(c *entity.Company) {},
		},
		{
			name:   "single field",
			patch:  patchOf(validation.FieldExchange, "NYSE"),
			expect: func(c *entity.Company) { c.Exchange = "NYSE" },
		},
		{
			name:   "explicit null website clears it",
			patch:  patchOf(validation.FieldWebsite, nil),
			expect: func(c *entity.Company) { c.Website = nil },
		},
		{
			name:   "empty website clears it",
			patch:  patchOf(validation.FieldWebsite, ""),
			expect: func(c *entity.Company) { c.Website = nil },
		},
		{
			name:  "same isin as self is not a conflict",
			patch: patchOf(validation.FieldISIN, "US0378331005", validation.FieldName, "Apple"),
			expect: func(c *entity.Company) {
				c.Name = "Apple"
			},
		},
		{
			name: "every field",
			patch: patchOf(
				validation.FieldName, "Microsoft Corporation",
				validation.FieldStockTicker, "MSFT",
				validation.FieldExchange, "NASDAQ",
				validation.FieldISIN, "US5949181045",
				validation.FieldWebsite, "https://www.microsoft.com",
			),
			expect: func(c *entity.Company) {
				c.Name = "Microsoft Corporation"
				c.StockTicker = "MSFT"
				c.ISIN = "US5949181045"
				c.Website = strptr("https://www.microsoft.com")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := patchRepo()
			got, err := newTestUsecase(repo).Patch(context.Background(), fixedID, tt.patch)
			require.NoError(t, err)

			want := apple()
			tt.expect(want)
			want.UpdatedAt = fixedStamp

			assert.Equal(t, want, got)
			assert.Equal(t, want, repo.updated)
		})
	}
}

// TestCompanyUsecase_Patch_OmissionInvariance は省略されたフィールドが更新前と同じ値を保つことを検証します。
func TestCompanyUsecase_Patch_OmissionInvariance(t *testing.T) {
	t.Parallel()

	for _, field := range validation.Fields {
		t.Run(field, func(t *testing.T) {
			t.Parallel()

			// field以外をすべて有効な値で送信する
			var p CompanyPatch
			values := map[string]string{
				validation.FieldName:        "Renamed",
				validation.FieldStockTicker: "RNMD",
				validation.FieldExchange:    "LSE",
				validation.FieldISIN:        "GB00B03MLX29",
				validation.FieldWebsite:     "https://renamed.example.com",
			}
			for _, f := range validation.Fields {
				if f != field {
					v := values[f]
					p.Set(f, &v)
				}
			}

			got, err := newTestUsecase(patchRepo()).Patch(context.Background(), fixedID, p)
			require.NoError(t, err)

			before := apple()
			switch field {
			case validation.FieldName:
				assert.Equal(t, before.Name, got.Name)
			case validation.FieldStockTicker:
				assert.Equal(t, before.StockTicker, got.StockTicker)
			case validation.FieldExchange:
				assert.Equal(t, before.Exchange, got.Exchange)
			case validation.FieldISIN:
				assert.Equal(t, before.ISIN, got.ISIN)
			case validation.FieldWebsite:
				assert.Equal(t, before.Website, got.Website)
			}
			assert.Equal(t, before.ID, got.ID)
			assert.Equal(t, before.CreatedAt, got.CreatedAt)
		})
	}
}

// TestCompanyUsecase_Patch_ValidationFailure は違反が1つでもあれば何も適用されないことを検証します。
func TestCompanyUsecase_Patch_ValidationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		patch  CompanyPatch
		fields map[string]string
	}{
		{
			name:   "malformed isin",
			patch:  patchOf(validation.FieldISIN, "BAD"),
			fields: map[string]string{"isin": "must be exactly 12 characters"},
		},
		{
			name:   "null required field",
			patch:  patchOf(validation.FieldName, nil),
			fields: map[string]string{"name": "is required"},
		},
		{
			name:   "empty required field",
			patch:  patchOf(validation.FieldStockTicker, ""),
			fields: map[string]string{"stockTicker": "is required"},
		},
		{
			name:   "valid field alongside invalid one",
			patch:  patchOf(validation.FieldName, "Changed", validation.FieldWebsite, "not a url"),
			fields: map[string]string{"website": "must be a well-formed absolute URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := patchRepo()
			repo.existsByISINFunc = func(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error) {
				t.Fatal("ExistsByISIN should not be called")
				return false, nil
			}

			_, err := newTestUsecase(repo).Patch(context.Background(), fixedID, tt.patch)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
			assert.Nil(t, repo.updated, "nothing is persisted")
		})
	}
}

// TestCompanyUsecase_Patch_NotFound は存在しないIDでは検証より先にNotFoundになることを検証します。
func TestCompanyUsecase_Patch_NotFound(t *testing.T) {
	t.Parallel()

	repo := patchRepo()
	_, err := newTestUsecase(repo).Patch(context.Background(), uuid.New(), patchOf(validation.FieldISIN, "BAD"))

	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
	assert.Nil(t, repo.updated)
}

// TestCompanyUsecase_Patch_Conflict はISINの重複が自身を除いて判定されることを検証します。
func TestCompanyUsecase_Patch_Conflict(t *testing.T) {
	t.Parallel()

	repo := patchRepo()
	repo.existsByISINFunc = func(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error) {
		require.NotNil(t, excludeID)
		assert.Equal(t, fixedID, *excludeID)
		return isin == "US5949181045", nil
	}

	_, err := newTestUsecase(repo).Patch(context.Background(), fixedID,
		patchOf(validation.FieldName, "Changed", validation.FieldISIN, "US5949181045"))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "US5949181045", conflict.ISIN)
	assert.Nil(t, repo.updated)
}

// TestCompanyUsecase_Patch_SkipsISINCheck はISINが送信されない場合に重複確認を行わないことを検証します。
func TestCompanyUsecase_Patch_SkipsISINCheck(t *testing.T) {
	t.Parallel()

	repo := patchRepo()
	repo.existsByISINFunc = func(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error) {
		t.Fatal("ExistsByISIN should not be called")
		return false, nil
	}

	_, err := newTestUsecase(repo).Patch(context.Background(), fixedID, patchOf(validation.FieldName, "Apple"))

	assert.NoError(t, err)
}

// TestCompanyUsecase_Patch_LoadsCurrentState は部分更新がキャッシュされ得る読み込みではなく
// 永続化層の最新状態を基に適用されることを検証します。
func TestCompanyUsecase_Patch_LoadsCurrentState(t *testing.T) {
	t.Parallel()

	repo := &mockCompanyRepository{
		// キャッシュに残った古い状態
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
			return apple(), nil
		},
		// 別のリクエストで取引所が変更済みの状態
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
			c := apple()
			c.Exchange = "NYSE"
			return c, nil
		},
	}

	got, err := newTestUsecase(repo).Patch(context.Background(), fixedID, patchOf(validation.FieldName, "New Name"))

	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "NYSE", got.Exchange)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "NYSE", repo.updated.Exchange)
}

// TestCompanyUsecase_Patch_StoreErrors は永続化時のエラー変換を検証します。
func TestCompanyUsecase_Patch_StoreErrors(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("write failed")
	tests := []struct {
		name     string
		storeErr error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "unique violation becomes conflict",
			storeErr: domain.ErrDuplicateISIN,
			check: func(t *testing.T, err error) {
				var conflict *domain.ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, "US5949181045", conflict.ISIN)
			},
		},
		{
			name:     "deleted concurrently",
			storeErr: domain.ErrCompanyNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
			},
		},
		{
			name:     "unexpected error is propagated",
			storeErr: dbErr,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, dbErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := patchRepo()
			repo.updateFunc = func(ctx context.Context, c *entity.Company) error { return tt.storeErr }

			_, err := newTestUsecase(repo).Patch(context.Background(), fixedID, patchOf(validation.FieldISIN, "US5949181045"))

			tt.check(t, err)
		})
	}
}
