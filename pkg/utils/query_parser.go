package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"asset-transfer-system/pkg/types"
)

// ParseFilterFromQuery разбирает query-параметры списочных запросов:
// search, sort[col]=asc|desc, filter[col]=v (или v1,v2), date_from/date_to,
// limit/offset/page, withPagination.
func ParseFilterFromQuery(query url.Values) types.Filter {
	filter := types.Filter{
		Sort:           make(map[string]string),
		Filter:         make(map[string]interface{}),
		Limit:          20,
		Page:           1,
		WithPagination: true,
	}

	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") {
			filter.Filter[key[7:len(key)-1]] = values[0]
		}
		if strings.HasPrefix(key, "sort[") && strings.HasSuffix(key, "]") {
			filter.Sort[key[5:len(key)-1]] = values[0]
		}
	}

	filter.Search = query.Get("search")

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
			if filter.Limit > 0 {
				filter.Page = o/filter.Limit + 1
			}
		}
	}
	// page имеет приоритет только если offset не задан
	if pageStr := query.Get("page"); pageStr != "" && filter.Offset == 0 {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
			filter.Offset = (p - 1) * filter.Limit
		}
	}

	if v := query.Get("withPagination"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.WithPagination = b
		}
	}

	if from := parseDate(query.Get("date_from")); from != nil {
		filter.DateFrom = from
	}
	if to := parseDate(query.Get("date_to")); to != nil {
		filter.DateTo = to
	}

	return filter
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
