package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.InitDB(&config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, RegisterValidators())
	h := NewHandler(
		service.NewPostService(repository.NewPostRepository(db), nil),
		service.NewCategoryService(repository.NewCategoryRepository(db)),
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return &testAPI{t: t, db: db, engine: r}
}

func (a *testAPI) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (a *testAPI) category(slug string) uint {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/categories", gin.H{"name": slug, "slug": slug})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	return decode[model.Category](a.t, env).ID
}

func (a *testAPI) post(body gin.H) model.Post {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/posts", body)
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	return decode[model.Post](a.t, env)
}

func categorySlugs(p model.Post) []string {
	out := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		out = append(out, c.Slug)
	}
	return out
}

func TestCreateAndGetPost(t *testing.T) {
	api := newTestAPI(t)
	goID := api.category("go")
	dbID := api.category("databases")

	created := api.post(gin.H{
		"title":       "Hello",
		"content":     "# Hi",
		"slug":        "hello-world",
		"excerpt":     "short",
		"categoryIds": []uint{dbID, goID, goID},
		"status":      "PUBLISHED",
	})
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsPublished)

	code, env := api.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)
	got := decode[model.Post](t, env)
	assert.Equal(t, "Hello", got.Title)
	require.NotNil(t, got.Excerpt)
	assert.Equal(t, "short", *got.Excerpt)
	assert.Equal(t, []string{"databases", "go"}, categorySlugs(got))

	code, env = api.do(http.MethodGet, "/api/v1/posts/slug/hello-world", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.ID, decode[model.Post](t, env).ID)
}

func TestCreatePost_Validation(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing title", gin.H{"content": "c", "slug": "s"}, "title is required"},
		{"bad slug", gin.H{"title": "t", "content": "c", "slug": "Not A Slug"}, "slug must be lowercase"},
		{"bad status", gin.H{"title": "t", "content": "c", "slug": "s", "status": "ARCHIVED"}, "status must be one of"},
		{"zero category", gin.H{"title": "t", "content": "c", "slug": "s", "categoryIds": []uint{0}}, "must be greater than 0"},
		{"malformed json", `{"title":`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := api.do(http.MethodPost, "/api/v1/posts", tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, 40000, env.Code)
			assert.Contains(t, env.Message, tc.want)
		})
	}
}

func TestCreatePost_Conflicts(t *testing.T) {
	api := newTestAPI(t)
	api.post(gin.H{"title": "a", "content": "c", "slug": "dup"})

	code, env := api.do(http.MethodPost, "/api/v1/posts", gin.H{"title": "b", "content": "c", "slug": "dup"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "slug already exists", env.Message)

	code, env = api.do(http.MethodPost, "/api/v1/posts", gin.H{"title": "b", "content": "c", "slug": "other", "categoryIds": []uint{999}})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "referenced category does not exist", env.Message)

	var n int64
	require.NoError(t, api.db.Model(&model.Post{}).Where("slug = ?", "other").Count(&n).Error)
	assert.Zero(t, n)
}

func TestGetPost_NotFoundAndBadID(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/posts/42", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, env.Code)

	code, _ = api.do(http.MethodGet, "/api/v1/posts/slug/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodGet, "/api/v1/posts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "id must be a positive integer", env.Message)

	code, _ = api.do(http.MethodGet, "/api/v1/posts/0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdatePost_CategoryReplacement(t *testing.T) {
	api := newTestAPI(t)
	a := api.category("a")
	b := api.category("b")
	p := api.post(gin.H{"title": "t", "content": "c", "slug": "t", "categoryIds": []uint{a}})
	path := fmt.Sprintf("/api/v1/posts/%d", p.ID)

	// categoryIds 缺省：关联不变
	code, env := api.do(http.MethodPut, path, gin.H{"title": "t2", "content": "c2", "slug": "t2"})
	require.Equal(t, http.StatusOK, code, env.Message)
	got := decode[model.Post](t, env)
	assert.Equal(t, "t2", got.Title)
	assert.Equal(t, []string{"a"}, categorySlugs(got))

	code, env = api.do(http.MethodPut, path, gin.H{"title": "t2", "content": "c2", "slug": "t2", "categoryIds": []uint{b}, "is_published": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	got = decode[model.Post](t, env)
	assert.Equal(t, []string{"b"}, categorySlugs(got))
	assert.True(t, got.IsPublished)

	code, env = api.do(http.MethodPut, path, `{"title":"t2","content":"c2","slug":"t2","categoryIds":[]}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	got = decode[model.Post](t, env)
	assert.Empty(t, got.Categories)
	assert.False(t, got.IsPublished)
}

func TestUpdatePost_OmittedIsPublishedUnpublishes(t *testing.T) {
	api := newTestAPI(t)
	p := api.post(gin.H{"title": "t", "content": "c", "slug": "t", "status": "PUBLISHED"})
	require.True(t, p.IsPublished)
	path := fmt.Sprintf("/api/v1/posts/%d", p.ID)

	code, env := api.do(http.MethodPut, path, gin.H{"title": "t", "content": "c", "slug": "t"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.False(t, decode[model.Post](t, env).IsPublished)

	code, env = api.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[model.Post](t, env).IsPublished)

	code, env = api.do(http.MethodPut, path, gin.H{"title": "t", "content": "c", "slug": "t", "is_published": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, decode[model.Post](t, env).IsPublished)
}

func TestUpdatePost_NotFound(t *testing.T) {
	api := newTestAPI(t)
	code, env := api.do(http.MethodPut, "/api/v1/posts/77", gin.H{"title": "t", "content": "c", "slug": "t"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, service.ErrPostNotFound.Error(), env.Message)
}

func TestListPosts_Filters(t *testing.T) {
	api := newTestAPI(t)
	goID := api.category("go")
	api.post(gin.H{"title": "draft", "content": "c", "slug": "draft"})
	api.post(gin.H{"title": "pub", "content": "c", "slug": "pub", "status": "PUBLISHED", "categoryIds": []uint{goID}})

	titles := func(query string) []string {
		code, env := api.do(http.MethodGet, "/api/v1/posts"+query, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
		posts := decode[[]model.Post](t, env)
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.Title)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"draft", "pub"}, titles(""))
	assert.Equal(t, []string{"pub"}, titles("?status=PUBLISHED"))
	assert.Equal(t, []string{"draft"}, titles("?status=DRAFT"))
	assert.Equal(t, []string{"pub"}, titles(fmt.Sprintf("?category_id=%d", goID)))

	code, _ := api.do(http.MethodGet, "/api/v1/posts?status=ARCHIVED", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(http.MethodGet, "/api/v1/posts?category_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRenderPost(t *testing.T) {
	api := newTestAPI(t)
	api.post(gin.H{"title": "t", "content": "# Title\n\nsome *text*", "slug": "md"})

	code, env := api.do(http.MethodGet, "/api/v1/posts/slug/md/html", nil)
	require.Equal(t, http.StatusOK, code)
	rendered := decode[struct {
		Post model.Post `json:"post"`
		HTML string     `json:"html"`
	}](t, env)
	assert.Equal(t, "md", rendered.Post.Slug)
	assert.Contains(t, rendered.HTML, "<em>text</em>")
	assert.Contains(t, rendered.HTML, "<h1")

	code, _ = api.do(http.MethodGet, "/api/v1/posts/slug/missing/html", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeletePost(t *testing.T) {
	api := newTestAPI(t)
	c := api.category("c")
	p := api.post(gin.H{"title": "t", "content": "c", "slug": "t", "categoryIds": []uint{c}})
	path := fmt.Sprintf("/api/v1/posts/%d", p.ID)

	code, env := api.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[deleteResult](t, env).Success)

	code, _ = api.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var n int64
	require.NoError(t, api.db.Model(&model.PostCategory{}).Where("post_id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCategoryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	zed := api.category("zed")
	alpha := api.category("alpha")

	code, env := api.do(http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]model.Category](t, env)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zed", list[1].Name)

	code, env = api.do(http.MethodPost, "/api/v1/categories", gin.H{"name": "again", "slug": "zed"})
	assert.Equal(t, http.StatusConflict, code, env.Message)

	code, env = api.do(http.MethodPut, fmt.Sprintf("/api/v1/categories/%d", alpha), gin.H{"name": "Alpha", "slug": "alpha", "description": "first"})
	require.Equal(t, http.StatusOK, code, env.Message)
	updated := decode[model.Category](t, env)
	assert.Equal(t, "Alpha", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "first", *updated.Description)

	code, _ = api.do(http.MethodPut, "/api/v1/categories/999", gin.H{"name": "x", "slug": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodPost, "/api/v1/categories", gin.H{"slug": "no-name"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "name is required")

	long := strings.Repeat("a", 51)
	code, env = api.do(http.MethodPost, "/api/v1/categories", gin.H{"name": long, "slug": "long-name"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name must be at most 50 characters", env.Message)
	code, env = api.do(http.MethodPost, "/api/v1/categories", gin.H{"name": "long slug", "slug": long})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "slug must be at most 50 characters", env.Message)
	code, env = api.do(http.MethodPost, "/api/v1/categories", gin.H{"name": long[:50], "slug": long[:50]})
	assert.Equal(t, http.StatusCreated, code, env.Message)

	p := api.post(gin.H{"title": "t", "content": "c", "slug": "t", "categoryIds": []uint{zed, alpha}})
	code, env = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", zed), nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[deleteResult](t, env).Success)

	code, env = api.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"alpha"}, categorySlugs(decode[model.Post](t, env)))

	code, _ = api.do(http.MethodGet, fmt.Sprintf("/api/v1/categories/%d", zed), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, database.Close(api.db))

	code, env := api.do(http.MethodGet, "/api/v1/posts", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", env.Message)
}
