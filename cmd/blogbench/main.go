package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func report(name string, total time.Duration, recs []time.Duration) {
	if len(recs) == 0 {
		return
	}
	fmt.Printf("%-22s total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		name, total, total/time.Duration(len(recs)), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
}

// 压测文章写入（含分类关联事务）与列表/查询延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	posts := service.NewPostService(repository.NewPostRepository(db), nil)
	cats := service.NewCategoryService(repository.NewCategoryRepository(db))
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 4)
	CATS := envInt("CATS", 10)
	QUERIES := envInt("QUERIES", 200)

	// 每次运行使用独立前缀，避免与已有数据的 slug 冲突
	run := uuid.New().String()[:8]

	catIDs := make([]uint, CATS)
	for i := range catIDs {
		slug := fmt.Sprintf("bench-%s-c%d", run, i)
		c := must(cats.Create(ctx, service.CategoryInput{Name: slug, Slug: slug}))
		catIDs[i] = c.ID
	}

	// 并发写入
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	workers := CONC
	if workers > N {
		workers = N
	}
	createCh := make(chan time.Duration, N)
	slugs := make([]string, N)
	ids := make([]uint, N)
	var failed int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	t0 := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				slug := fmt.Sprintf("bench-%s-p%d", run, i)
				status := model.PostStatusDraft
				if i%2 == 0 {
					status = model.PostStatusPublished
				}
				in := service.CreatePostInput{
					Title:       fmt.Sprintf("Bench post %d", i),
					Content:     "# Heading\n\nbenchmark body with *markdown*",
					Slug:        slug,
					CategoryIDs: []uint{catIDs[i%CATS], catIDs[(i*7)%CATS]},
					Status:      status,
				}
				st := time.Now()
				p, err := posts.Create(ctx, in)
				createCh <- time.Since(st)
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				slugs[i] = slug
				ids[i] = p.ID
			}
		}()
	}
	wg.Wait()
	createDur := time.Since(t0)
	close(createCh)
	createRecs := make([]time.Duration, 0, N)
	for d := range createCh {
		createRecs = append(createRecs, d)
	}

	measure := func(n int, op func(i int)) (time.Duration, []time.Duration) {
		recs := make([]time.Duration, 0, n)
		start := time.Now()
		for i := 0; i < n; i++ {
			st := time.Now()
			op(i)
			recs = append(recs, time.Since(st))
		}
		return time.Since(start), recs
	}

	bySlugDur, bySlugRecs := measure(QUERIES, func(i int) {
		_, _ = posts.GetBySlug(ctx, slugs[(i*31)%N])
	})
	renderDur, renderRecs := measure(QUERIES, func(i int) {
		_, _ = posts.RenderBySlug(ctx, slugs[(i*17)%N])
	})
	listCatDur, listCatRecs := measure(QUERIES/10+1, func(i int) {
		_, _ = posts.List(ctx, service.ListPostsInput{CategoryID: catIDs[i%CATS]})
	})
	listPubDur, listPubRecs := measure(QUERIES/10+1, func(int) {
		_, _ = posts.List(ctx, service.ListPostsInput{Status: model.PostStatusPublished})
	})
	updateDur, updateRecs := measure(QUERIES, func(i int) {
		k := (i * 13) % N
		if ids[k] == 0 {
			return
		}
		replace := []uint{catIDs[(i+1)%CATS]}
		_, _ = posts.Update(ctx, ids[k], service.UpdatePostInput{
			Title:       fmt.Sprintf("Bench post %d (edited)", k),
			Content:     "edited",
			Slug:        slugs[k],
			CategoryIDs: &replace,
		})
	})

	fmt.Printf("driver=%s N=%d, CONC=%d, CATS=%d, QUERIES=%d, failed=%d\n",
		cfg.Database.Driver, N, CONC, CATS, QUERIES, failed)
	report("create (tx+assoc)", createDur, createRecs)
	report("get by slug", bySlugDur, bySlugRecs)
	report("render by slug", renderDur, renderRecs)
	report("list by category", listCatDur, listCatRecs)
	report("list published", listPubDur, listPubRecs)
	report("update (replace cats)", updateDur, updateRecs)
}
