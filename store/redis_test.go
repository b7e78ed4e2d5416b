package store

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/cartrec/core"
)

func newRedisLog(t *testing.T) *RedisInteractionLog {
	t.Helper()
	addr := os.Getenv("CARTREC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CARTREC_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	log := NewRedisInteractionLogWithClient(client, "cartrec-test-"+uuid.NewString())
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, log.KeyPrefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = log.Close()
	})
	return log
}

func TestRedisInteractionLog_CountByProductScanCap(t *testing.T) {
	log := newRedisLog(t)
	now := time.Now().Truncate(time.Millisecond)
	log.now = func() time.Time { return now }
	log.MaxScan = 2
	ctx := context.Background()

	appendAll(t, log,
		core.Interaction{ID: "1", UserID: "u1", ProductID: "p1", Type: core.InteractionView, CreatedAt: now.Add(-3 * time.Minute)},
		core.Interaction{ID: "2", UserID: "u1", ProductID: "p2", Type: core.InteractionView, CreatedAt: now.Add(-2 * time.Minute)},
		core.Interaction{ID: "3", UserID: "u2", ProductID: "p2", Type: core.InteractionView, CreatedAt: now.Add(-time.Minute)},
	)

	counts, err := log.CountByProduct(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if want := []core.ProductCount{{"p2", 2}}; !reflect.DeepEqual(counts, want) {
		t.Errorf("CountByProduct() = %v, want %v", counts, want)
	}
}

func TestRedisInteractionLog_Queries(t *testing.T) {
	log := newRedisLog(t)
	now := time.Now().Truncate(time.Millisecond)
	log.now = func() time.Time { return now }
	ctx := context.Background()

	appendAll(t, log,
		core.Interaction{ID: "1", UserID: "u1", ProductID: "p1", Type: core.InteractionView, CreatedAt: now.Add(-5 * time.Minute)},
		core.Interaction{ID: "2", UserID: "u2", ProductID: "p1", Type: core.InteractionView, CreatedAt: now.Add(-4 * time.Minute)},
		core.Interaction{ID: "3", UserID: "u2", ProductID: "p2", Type: core.InteractionCart, CreatedAt: now.Add(-3 * time.Minute)},
		core.Interaction{ID: "4", UserID: "u1", ProductID: "p1", Type: core.InteractionLike, CreatedAt: now.Add(-2 * time.Minute)},
	)

	n, err := log.Count(ctx)
	if err != nil || n != 4 {
		t.Fatalf("Count() = %d, %v, want 4", n, err)
	}
	counts, err := log.CountByProduct(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if want := []core.ProductCount{{"p1", 3}, {"p2", 1}}; !reflect.DeepEqual(counts, want) {
		t.Errorf("CountByProduct() = %v, want %v", counts, want)
	}
	users, _ := log.DistinctUserIDs(ctx, []string{"p1"}, "u1")
	if !reflect.DeepEqual(users, []string{"u2"}) {
		t.Errorf("DistinctUserIDs() = %v", users)
	}
	products, _ := log.ProductIDsByUsers(ctx, []string{"u2"}, []string{"p1"}, 5)
	if !reflect.DeepEqual(products, []string{"p2"}) {
		t.Errorf("ProductIDsByUsers() = %v", products)
	}
	recent, _ := log.Recent(ctx, "u1", core.InteractionView, 6)
	if len(recent) != 1 || recent[0].ID != "1" {
		t.Errorf("Recent() = %+v", recent)
	}
}

func TestRedisInteractionLog_Retention(t *testing.T) {
	log := newRedisLog(t)
	now := time.Now().Truncate(time.Millisecond)
	log.now = func() time.Time { return now }
	ctx := context.Background()

	appendAll(t, log,
		core.Interaction{ID: "old", UserID: "u1", ProductID: "p1", Type: core.InteractionView, CreatedAt: now.Add(-core.InteractionRetention - time.Hour)},
		core.Interaction{ID: "new", UserID: "u1", ProductID: "p2", Type: core.InteractionView, CreatedAt: now},
	)
	ids, err := log.DistinctProductIDs(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"p2"}) {
		t.Errorf("DistinctProductIDs() = %v, want [p2]", ids)
	}
}
