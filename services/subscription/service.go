package subscription

import (
	"fmt"
	"log"
	"time"

	"github.com/shiksha-labs/shiksha-api/model"
	"gorm.io/gorm"
)

// ConflictError reports an active subscription overlapping the candidate
// plan. The message is user-facing.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// entry is one active entitlement, merged from either source.
type entry struct {
	planType string
	board    string
	classes  []int
	classID  *uint
	endDate  time.Time
}

// Service answers entitlement questions against both sources of truth:
// the student's active_subscriptions rows and completed payments with a
// future window. The two can diverge, so both are always consulted.
type Service struct {
	db *gorm.DB
}

// NewService creates a subscription service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ActiveSubscriptions returns the student's unexpired subscription rows.
func (s *Service) ActiveSubscriptions(userID uint, now time.Time) ([]model.ActiveSubscription, error) {
	var subs []model.ActiveSubscription
	err := s.db.Preload("Plan").
		Where("user_id = ? AND end_date > ?", userID, now).
		Order("end_date DESC").
		Find(&subs).Error
	return subs, err
}

// CheckConflict rejects a purchase when an active entitlement already
// covers the candidate plan's scope. Regular plans conflict on board plus
// class intersection; preparation plans on the class track id.
func (s *Service) CheckConflict(userID uint, plan *model.SubscriptionPlan, now time.Time) error {
	entries, err := s.activeEntries(userID, now)
	if err != nil {
		return err
	}

	switch plan.Type {
	case model.PlanTypeRegular:
		planClasses := plan.ClassList()
		for _, e := range entries {
			if e.planType != model.PlanTypeRegular || e.board != plan.Board {
				continue
			}
			if class, ok := intersect(planClasses, e.classes); ok {
				return &ConflictError{
					Message: fmt.Sprintf("You already have an active subscription for %s Class %d", e.board, class),
				}
			}
		}
	case model.PlanTypePreparation:
		if plan.ClassID == nil {
			// Fail open: an order for a plan without a resolvable class
			// track is not blocked, only logged.
			log.Printf("subscription: preparation plan %d has no class id, skipping conflict check", plan.ID)
			return nil
		}
		for _, e := range entries {
			if e.planType != model.PlanTypePreparation || e.classID == nil {
				continue
			}
			if *e.classID == *plan.ClassID {
				return &ConflictError{
					Message: "You already have an active preparation subscription for this class",
				}
			}
		}
	}

	return nil
}

// activeEntries merges the subscription rows and the completed payments
// whose window is still open.
func (s *Service) activeEntries(userID uint, now time.Time) ([]entry, error) {
	subs, err := s.ActiveSubscriptions(userID, now)
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(subs))
	for _, sub := range subs {
		e := entry{
			planType: sub.Type,
			board:    sub.Board,
			classID:  sub.ClassID,
			endDate:  sub.EndDate,
		}
		if sub.Class != 0 {
			e.classes = []int{sub.Class}
		} else if len(sub.Plan.ClassList()) > 0 {
			e.classes = sub.Plan.ClassList()
		}
		entries = append(entries, e)
	}

	var payments []model.Payment
	err = s.db.Preload("Plan").
		Where("user_id = ? AND status = ? AND subscription_end_date > ?", userID, model.PaymentCompleted, now).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	for _, p := range payments {
		if p.Plan.ID == 0 {
			continue
		}
		entries = append(entries, entry{
			planType: p.Plan.Type,
			board:    p.Plan.Board,
			classes:  p.Plan.ClassList(),
			classID:  p.Plan.ClassID,
			endDate:  *p.SubscriptionEndDate,
		})
	}

	return entries, nil
}

func intersect(a, b []int) (int, bool) {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return x, true
			}
		}
	}
	return 0, false
}
