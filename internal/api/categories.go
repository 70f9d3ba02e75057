package api

import (
	"net/http"
)

// handleListCategories serves the public category catalog. Inactive
// categories stay visible only to the operator CLI.
func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.store.ListCategories(r.Context(), true)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]categoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, newCategoryView(category))
	}
	writeData(w, http.StatusOK, categoryListView{Categories: views})
}
