package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/review-service/internal/service"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/pagination"
)

// parseListQuery reads the listing filters shared by the public and admin
// endpoints:
//
//	?rating=4,5&verified=true&pinned=false&created_from=<RFC3339>&created_to=<RFC3339>
//	&search=text&sort_by=rating&sort_order=desc&page=2&per_page=20
//
// Admin listings additionally accept product_id, user_id, customer_email and
// approved.
func parseListQuery(r *http.Request, admin bool) (service.ReviewListQuery, error) {
	q := r.URL.Query()
	params := pagination.FromRequest(r)

	out := service.ReviewListQuery{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      params.Page,
		PerPage:   params.PerPage,
		Search:    optionalString(q, "search"),
	}

	ratings, err := parseRatings(q["rating"])
	if err != nil {
		return out, err
	}
	out.Ratings = ratings

	if out.IsVerified, err = optionalBool(q, "verified"); err != nil {
		return out, err
	}
	if out.IsPinned, err = optionalBool(q, "pinned"); err != nil {
		return out, err
	}
	if out.CreatedFrom, err = optionalTime(q, "created_from"); err != nil {
		return out, err
	}
	if out.CreatedTo, err = optionalTime(q, "created_to"); err != nil {
		return out, err
	}

	if admin {
		if out.ProductID, err = optionalUUID(q, "product_id"); err != nil {
			return out, err
		}
		if out.UserID, err = optionalUUID(q, "user_id"); err != nil {
			return out, err
		}
		out.CustomerEmail = optionalString(q, "customer_email")
		if out.IsApproved, err = optionalBool(q, "approved"); err != nil {
			return out, err
		}
	}

	return out, nil
}

// parseRatings accepts both ?rating=4&rating=5 and ?rating=4,5.
func parseRatings(values []string) ([]int, error) {
	var ratings []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, apperrors.InvalidInput("rating must be an integer: " + part)
			}
			ratings = append(ratings, n)
		}
	}
	return ratings, nil
}

func optionalString(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func optionalUUID(q url.Values, key string) (*string, error) {
	v := optionalString(q, key)
	if v == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*v)
	if err != nil {
		return nil, apperrors.InvalidInput(key + " must be a UUID")
	}
	s := id.String()
	return &s, nil
}

func optionalBool(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperrors.InvalidInput(key + " must be a boolean")
	}
	return &b, nil
}

func optionalTime(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperrors.InvalidInput(key + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}
