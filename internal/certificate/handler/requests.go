package handler

import (
	"net/url"
	"strconv"
	"strings"

	"certus/internal/certificate/models"
	dErrors "certus/pkg/domain-errors"
)

// parseListFilter reads page, limit and active from the query string.
func parseListFilter(q url.Values) (models.ListFilter, error) {
	var f models.ListFilter
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return f, dErrors.New(dErrors.CodeValidation, "page must be a positive integer")
		}
		f.Page = page
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return f, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		f.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "active must be true or false")
		}
		f.Active = &active
	}
	return f.Normalize(), nil
}
