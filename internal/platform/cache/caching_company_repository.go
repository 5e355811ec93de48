// Package cache はリポジトリインターフェースのキャッシュ実装を提供します。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"company_backend/internal/feature/company/domain/entity"
	"company_backend/internal/feature/company/usecase"
)

// errStaleRead は読み込み中にエントリが無効化されたことを表します。
var errStaleRead = errors.New("cache: entry invalidated during load")

// CachingCompanyRepository はCompanyRepositoryをRedisキャッシュでデコレートします。
// キャッシュするのはIDによる取得のみで、ISINの重複確認や一覧は常に内部リポジトリに問い合わせます。
type CachingCompanyRepository struct {
	inner     usecase.CompanyRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	group     singleflight.Group
}

var _ usecase.CompanyRepository = (*CachingCompanyRepository)(nil)

// NewCachingCompanyRepository はCompanyRepositoryをRedisキャッシュでデコレートします。
// ttlが0以下の場合は5分、namespaceが空の場合は"companies"を使用します。
func NewCachingCompanyRepository(rdb *redis.Client, ttl time.Duration, inner usecase.CompanyRepository, namespace string) *CachingCompanyRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "companies"
	}
	return &CachingCompanyRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindByID はキャッシュを確認し、なければデータベースから取得してキャッシュします。
// 同一IDへの同時のキャッシュミスは1回の問い合わせにまとめます。
func (c *CachingCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) キャッシュを確認
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Company
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// 破損したエントリは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) データベースにフォールバックし、読み込み中に無効化されていなければキャッシュに保存
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	company := v.(*entity.Company)

	// singleflightで共有された値を呼び出し側が変更しても影響しないようコピーを返す
	out := *company
	return &out, nil
}

// FindByIDForUpdate は更新の前提となる読み込みのため、キャッシュを経由せず内部リポジトリに委譲します。
func (c *CachingCompanyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return c.inner.FindByIDForUpdate(ctx, id)
}

// load はデータベースから企業を取得し、キャッシュに保存します。
// 取得前に世代番号を読み、保存時に世代が進んでいれば（読み込み中に更新・削除があれば）保存しません。
func (c *CachingCompanyRepository) load(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	genKey := c.generationKey(id)
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// 世代が確認できない場合はキャッシュに保存しない
		return c.inner.FindByID(ctx, id)
	}

	company, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(company)
	if err != nil {
		return company, nil
	}
	key := c.cacheKey(id)
	// ベストエフォート
	_ = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, genKey)

	return company, nil
}

// FindByISIN は内部リポジトリに委譲します。
func (c *CachingCompanyRepository) FindByISIN(ctx context.Context, isin string) (*entity.Company, error) {
	return c.inner.FindByISIN(ctx, isin)
}

// ExistsByISIN は一意性の判定に使われるため、キャッシュを経由せず内部リポジトリに委譲します。
func (c *CachingCompanyRepository) ExistsByISIN(ctx context.Context, isin string, excludeID *uuid.UUID) (bool, error) {
	return c.inner.ExistsByISIN(ctx, isin, excludeID)
}

// List は内部リポジトリに委譲します。
func (c *CachingCompanyRepository) List(ctx context.Context) ([]entity.Company, error) {
	return c.inner.List(ctx)
}

// Create は内部リポジトリに委譲します。新しいIDのためキャッシュの無効化は不要です。
func (c *CachingCompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	return c.inner.Create(ctx, company)
}

// Update は内部リポジトリを更新した後、該当IDのキャッシュを無効化します。
func (c *CachingCompanyRepository) Update(ctx context.Context, company *entity.Company) error {
	if err := c.inner.Update(ctx, company); err != nil {
		return err
	}
	c.invalidate(ctx, company.ID)
	return nil
}

// Delete は内部リポジトリから削除した後、該当IDのキャッシュを無効化します。
func (c *CachingCompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// invalidate は世代番号を進めてキャッシュエントリを削除します。失敗しても処理は継続します。
// 世代番号はエントリより長く保持し、読み込み中の古い値が保存されるのを防ぎます。
func (c *CachingCompanyRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if c.rdb == nil {
		return
	}
	genKey := c.generationKey(id)
	_, _ = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, 2*c.ttl)
		pipe.Del(ctx, c.cacheKey(id))
		return nil
	})
}

// cacheKey はIDに対応するキャッシュキーを生成します。
func (c *CachingCompanyRepository) cacheKey(id uuid.UUID) string {
	return c.namespace + ":id:" + id.String()
}

// generationKey はIDに対応する世代番号のキーを生成します。
func (c *CachingCompanyRepository) generationKey(id uuid.UUID) string {
	return c.namespace + ":gen:" + id.String()
}
