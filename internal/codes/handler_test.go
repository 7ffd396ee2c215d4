package codes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	filter  Filter
	created CreateInput
	err     error
	system  bool
}

func (f *fakeStore) List(_ context.Context, flt Filter) ([]Code, error) {
	f.filter = flt
	return []Code{{ID: 1, Code: "RANK", Name: "직급"}}, f.err
}

func (f *fakeStore) Get(_ context.Context, id int64) (*Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Code{ID: id}, nil
}

func (f *fakeStore) Create(_ context.Context, in CreateInput) (*Code, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &Code{ID: 2, Code: in.Code, Name: in.Name, IsActive: true}, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, in UpdateInput) (*Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Code{ID: id}, nil
}

func (f *fakeStore) Delete(context.Context, int64) error {
	if f.system {
		return ErrSystemCode
	}
	return f.err
}

func setup(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store, nil).Register(r.Group("/codes"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListCodes_Filters(t *testing.T) {
	store := &fakeStore{}
	r := setup(store)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/codes?parentId=null", "").Code)
	assert.True(t, store.filter.RootOnly)
	assert.Nil(t, store.filter.ParentID)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/codes?parentId=4&includeInactive=true", "").Code)
	require.NotNil(t, store.filter.ParentID)
	assert.Equal(t, int64(4), *store.filter.ParentID)
	assert.True(t, store.filter.IncludeInactive)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/codes?parentCode=RANK&parentId=4", "").Code)
	assert.Equal(t, "RANK", store.filter.ParentCode)
	assert.Nil(t, store.filter.ParentID, "parentCode wins")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/codes?parentId=abc", "").Code)
}

func TestCreateCode(t *testing.T) {
	store := &fakeStore{}
	r := setup(store)

	w := do(r, http.MethodPost, "/codes", `{"code":" R05 ","name":"책임","parent_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "R05", store.created.Code)
	assert.Nil(t, store.created.IsActive)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/codes", `{"code":"R05"}`).Code)

	store.err = ErrDuplicate
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/codes", `{"code":"R05","name":"책임"}`).Code)
}

func TestDeleteCode(t *testing.T) {
	store := &fakeStore{system: true}
	r := setup(store)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/codes/3", "").Code)

	store.system = false
	store.err = ErrInUse
	assert.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/codes/3", "").Code)

	store.err = nil
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/codes/3", "").Code)
}
