package departments

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

type memStore struct {
	items  map[int64]*Department
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{items: map[int64]*Department{}, nextID: 1}
}

func (m *memStore) List(context.Context) ([]Department, error) {
	out := make([]Department, 0, len(m.items))
	for _, d := range m.items {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*Department, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *memStore) Create(_ context.Context, in CreateInput) (*Department, error) {
	d := &Department{ID: m.nextID, Name: in.Name, ParentID: in.ParentID, DisplayOrder: in.DisplayOrder}
	m.items[d.ID] = d
	m.nextID++
	return d, nil
}

func (m *memStore) Update(_ context.Context, id int64, in UpdateInput) (*Department, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.ClearParent {
		d.ParentID = nil
	} else if in.ParentID != nil {
		d.ParentID = in.ParentID
	}
	return d, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	for _, d := range m.items {
		if d.ParentID != nil && *d.ParentID == id {
			return ErrHasChildren
		}
	}
	delete(m.items, id)
	return nil
}

func setup() (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	r := gin.New()
	NewHandler(store, nil).Register(r.Group("/departments"))
	return r, store
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDepartmentLifecycle(t *testing.T) {
	r, store := setup()

	w := do(r, http.MethodPost, "/departments", `{"name":"플랫폼사업부"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, "/departments", `{"name":"개발1팀","parent_department_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.items[2].ParentID)

	w = do(r, http.MethodDelete, "/departments/1", "")
	assert.Equal(t, http.StatusConflict, w.Code, "parent with children")

	w = do(r, http.MethodPatch, "/departments/2", `{"clear_parent":true,"name":"개발팀"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.items[2].ParentID)
	assert.Equal(t, "개발팀", store.items[2].Name)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/departments/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/departments/1", "").Code)

	w = do(r, http.MethodGet, "/departments", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "개발팀")
}

func TestDepartmentValidation(t *testing.T) {
	r, _ := setup()
	do(r, http.MethodPost, "/departments", `{"name":"A"}`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/departments", `{"name":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/departments/1", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/departments/1", `{"parent_department_id":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/departments/x", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/departments/9", `{"name":"B"}`).Code)
}
