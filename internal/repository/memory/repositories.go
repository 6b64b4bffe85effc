package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/pagination"
)

type reviewRepo struct{ v *view }

func (r *reviewRepo) Create(_ context.Context, rv *domain.Review) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reviews.Create"); err != nil {
		return err
	}

	for _, existing := range st.reviews {
		if existing.ProductID != rv.ProductID {
			continue
		}
		sameUser := rv.UserID != nil && existing.UserID != nil && *existing.UserID == *rv.UserID
		sameGuest := rv.UserID == nil && existing.UserID == nil &&
			domain.NormalizeEmail(existing.CustomerEmail) == domain.NormalizeEmail(rv.CustomerEmail)
		if sameUser || sameGuest {
			return apperrors.AlreadyExists("review", "product_id", rv.ProductID)
		}
	}
	st.reviews[rv.ID] = rv.Clone()
	return nil
}

func (r *reviewRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	st, release := r.v.acquire()
	defer release()

	rv, ok := st.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return rv.Clone(), nil
}

// GetByIDForUpdate needs no extra locking: transactions are serialized.
func (r *reviewRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error) {
	return r.GetByID(ctx, id)
}

func (r *reviewRepo) Update(_ context.Context, rv *domain.Review) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reviews.Update"); err != nil {
		return err
	}

	stored, ok := st.reviews[rv.ID]
	if !ok {
		return apperrors.NotFound("review", rv.ID)
	}
	stored.Rating = rv.Rating
	stored.Title = rv.Title
	stored.Content = rv.Content
	stored.IsApproved = rv.IsApproved
	stored.IsPinned = rv.IsPinned
	if rv.ModeratorNotes != nil {
		notes := *rv.ModeratorNotes
		stored.ModeratorNotes = &notes
	} else {
		stored.ModeratorNotes = nil
	}
	stored.UpdatedAt = rv.UpdatedAt
	return nil
}

// Delete cascades to the review's votes and reports like the foreign keys do.
func (r *reviewRepo) Delete(_ context.Context, id string) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reviews.Delete"); err != nil {
		return err
	}

	if _, ok := st.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(st.reviews, id)
	for vid, v := range st.votes {
		if v.ReviewID == id {
			delete(st.votes, vid)
		}
	}
	for rid, rp := range st.reports {
		if rp.ReviewID == id {
			delete(st.reports, rid)
		}
	}
	return nil
}

func (r *reviewRepo) ExistsForUser(_ context.Context, userID, productID string) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	for _, rv := range st.reviews {
		if rv.ProductID == productID && rv.UserID != nil && *rv.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *reviewRepo) ExistsForGuest(_ context.Context, email, productID string) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	email = domain.NormalizeEmail(email)
	for _, rv := range st.reviews {
		if rv.ProductID == productID && rv.UserID == nil && domain.NormalizeEmail(rv.CustomerEmail) == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *reviewRepo) List(_ context.Context, f repository.ReviewFilter) ([]domain.Review, int, error) {
	st, release := r.v.acquire()
	defer release()

	matched := make([]domain.Review, 0, len(st.reviews))
	for _, rv := range st.reviews {
		if matches(rv, f) {
			matched = append(matched, *rv.Clone())
		}
	}
	sortReviews(matched, f)

	params := pagination.New(f.Page, f.PerPage)
	total := len(matched)
	start := min(params.Offset, total)
	end := min(start+params.PerPage, total)
	return matched[start:end], total, nil
}

func (r *reviewRepo) SetHelpfulCount(_ context.Context, id string, count int) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reviews.SetHelpfulCount"); err != nil {
		return err
	}

	rv, ok := st.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	rv.HelpfulCount = count
	return nil
}

func (r *reviewRepo) SetReportCount(_ context.Context, id string, count int) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reviews.SetReportCount"); err != nil {
		return err
	}

	rv, ok := st.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	rv.ReportCount = count
	return nil
}

func (r *reviewRepo) RatingCounts(_ context.Context, productID string) (map[int]int, error) {
	st, release := r.v.acquire()
	defer release()

	counts := make(map[int]int, domain.MaxRating)
	for _, rv := range st.reviews {
		if rv.ProductID == productID && rv.IsApproved {
			counts[rv.Rating]++
		}
	}
	return counts, nil
}

func matches(rv *domain.Review, f repository.ReviewFilter) bool {
	if f.ProductID != nil && rv.ProductID != *f.ProductID {
		return false
	}
	if f.UserID != nil && (rv.UserID == nil || *rv.UserID != *f.UserID) {
		return false
	}
	if f.CustomerEmail != nil && domain.NormalizeEmail(rv.CustomerEmail) != domain.NormalizeEmail(*f.CustomerEmail) {
		return false
	}
	if len(f.Ratings) > 0 && !slices.Contains(f.Ratings, rv.Rating) {
		return false
	}
	if f.IsVerified != nil && rv.IsVerified != *f.IsVerified {
		return false
	}
	if f.IsApproved != nil && rv.IsApproved != *f.IsApproved {
		return false
	}
	if f.IsPinned != nil && rv.IsPinned != *f.IsPinned {
		return false
	}
	if f.CreatedFrom != nil && rv.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && rv.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.Search != nil {
		term := strings.ToLower(strings.TrimSpace(*f.Search))
		if term != "" {
			hit := false
			for _, field := range []string{rv.Title, rv.Content, rv.CustomerName, rv.CustomerEmail} {
				if strings.Contains(strings.ToLower(field), term) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	return true
}

func sortReviews(reviews []domain.Review, f repository.ReviewFilter) {
	asc := f.SortOrder == domain.SortAsc
	byField := func(a, b *domain.Review) int {
		switch f.SortBy {
		case domain.SortByRating:
			return a.Rating - b.Rating
		case domain.SortByHelpfulCount:
			return a.HelpfulCount - b.HelpfulCount
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	pinnedFirst := f.PinnedFirst && (f.SortBy == "" || f.SortBy == domain.SortByCreatedAt)

	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := &reviews[i], &reviews[j]
		if pinnedFirst && a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		c := byField(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}


type voteRepo struct{ v *view }

func (r *voteRepo) Upsert(_ context.Context, vote *domain.HelpfulVote) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("votes.Upsert"); err != nil {
		return err
	}

	key := vote.Voter()
	for _, existing := range st.votes {
		if existing.ReviewID == vote.ReviewID && existing.Voter() == key {
			existing.IsHelpful = vote.IsHelpful
			existing.UpdatedAt = vote.UpdatedAt
			return nil
		}
	}
	cp := *vote
	st.votes[vote.ID] = &cp
	return nil
}

func (r *voteRepo) CountHelpful(_ context.Context, reviewID string) (int, error) {
	st, release := r.v.acquire()
	defer release()

	n := 0
	for _, v := range st.votes {
		if v.ReviewID == reviewID && v.IsHelpful {
			n++
		}
	}
	return n, nil
}

type reportRepo struct{ v *view }

func (r *reportRepo) Exists(_ context.Context, userID, reviewID string) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	for _, rp := range st.reports {
		if rp.UserID == userID && rp.ReviewID == reviewID {
			return true, nil
		}
	}
	return false, nil
}

func (r *reportRepo) Create(_ context.Context, rp *domain.Report) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("reports.Create"); err != nil {
		return err
	}

	for _, existing := range st.reports {
		if existing.UserID == rp.UserID && existing.ReviewID == rp.ReviewID {
			return apperrors.AlreadyExists("report", "review_id", rp.ReviewID)
		}
	}
	cp := *rp
	st.reports[rp.ID] = &cp
	return nil
}

func (r *reportRepo) Count(_ context.Context, reviewID string) (int, error) {
	st, release := r.v.acquire()
	defer release()

	n := 0
	for _, rp := range st.reports {
		if rp.ReviewID == reviewID {
			n++
		}
	}
	return n, nil
}

type logRepo struct{ v *view }

func (r *logRepo) Append(_ context.Context, e *domain.ModerationLogEntry) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("moderation_logs.Append"); err != nil {
		return err
	}

	st.logs = append(st.logs, *e)
	return nil
}

func (r *logRepo) ListByReview(_ context.Context, reviewID string) ([]domain.ModerationLogEntry, error) {
	st, release := r.v.acquire()
	defer release()

	entries := []domain.ModerationLogEntry{}
	for i := len(st.logs) - 1; i >= 0; i-- {
		if st.logs[i].ReviewID == reviewID {
			entries = append(entries, st.logs[i])
		}
	}
	return entries, nil
}

type productRepo struct{ v *view }

func (r *productRepo) Exists(_ context.Context, productID string) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	_, ok := st.products[productID]
	return ok, nil
}

func (r *productRepo) LockForUpdate(_ context.Context, productID string) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("products.LockForUpdate"); err != nil {
		return err
	}

	if _, ok := st.products[productID]; !ok {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

func (r *productRepo) UpdateRatingAggregate(_ context.Context, productID string, agg domain.RatingAggregate) error {
	st, release := r.v.acquire()
	defer release()
	if err := r.v.fault("products.UpdateRatingAggregate"); err != nil {
		return err
	}

	p, ok := st.products[productID]
	if !ok {
		return apperrors.NotFound("product", productID)
	}
	agg.Distribution = copyDistribution(agg.Distribution)
	p.aggregate = agg
	p.updatedAt = time.Now().UTC()
	return nil
}

type userRepo struct{ v *view }

func (r *userRepo) GetProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	st, release := r.v.acquire()
	defer release()

	p, ok := st.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	return &p, nil
}

type orderRepo struct{ v *view }

// FindCompletedPurchase returns the newest delivered order that matches.
func (r *orderRepo) FindCompletedPurchase(_ context.Context, q repository.PurchaseQuery) (string, bool, error) {
	st, release := r.v.acquire()
	defer release()

	var best *Order
	for i := range st.orders {
		o := &st.orders[i]
		if o.Status != domain.OrderStatusDelivered || !slices.Contains(o.ProductIDs, q.ProductID) {
			continue
		}
		if q.OrderID != nil && o.ID != *q.OrderID {
			continue
		}
		if q.UserID != "" {
			if o.UserID != q.UserID {
				continue
			}
		} else {
			u, ok := st.users[o.UserID]
			if !ok || domain.NormalizeEmail(u.Email) != domain.NormalizeEmail(q.Email) {
				continue
			}
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return "", false, nil
	}
	return best.ID, true, nil
}
