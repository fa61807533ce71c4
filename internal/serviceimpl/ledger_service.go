package serviceimpl

import (
	"fmt"
	"strings"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *ledgerService {
	return &ledgerService{DB: db}
}

func (s *ledgerService) GetEntries(req request.GetLedgerRequest) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var count int64

	query := s.DB.Model(&models.LedgerEntry{})
	query = request.ApplyGetLedgerRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}

	return entries, count, nil
}

// Replay recomputes a member's balances from the ledger alone: lifetime
// points are the sum of positive deltas, the spendable balance the sum of
// all deltas.
func (s *ledgerService) Replay(memberID uint) (int64, int64, error) {
	var sums struct {
		Balance  int64
		Lifetime int64
	}

	err := s.DB.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(points), 0) AS balance, COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS lifetime").
		Where("member_id = ?", memberID).
		Scan(&sums).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to replay ledger for member %d: %w", memberID, err)
	}

	return sums.Balance, sums.Lifetime, nil
}

// lockMember fetches a member row with a row-level lock. Must run inside a
// transaction; this is what serializes concurrent balance mutations against
// the same member.
func lockMember(tx *gorm.DB, shop string, memberID uint) (*models.Member, error) {
	var member models.Member
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop = ? AND id = ?", shop, memberID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// creditPoints appends an earn ledger entry and increments both balance and
// lifetime points in one statement each. Must run inside a transaction so
// the entry and the balance move commit or roll back together.
func creditPoints(tx *gorm.DB, shop string, memberID uint, pts int64, action, description, refKind, refID string) error {
	if pts <= 0 {
		return nil
	}

	entry := &models.LedgerEntry{
		Shop:          shop,
		MemberID:      memberID,
		Points:        pts,
		Action:        action,
		Description:   description,
		ReferenceKind: refKind,
		ReferenceID:   refID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	err := tx.Model(&models.Member{}).Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"points_balance":  gorm.Expr("points_balance + ?", pts),
			"lifetime_points": gorm.Expr("lifetime_points + ?", pts),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to credit member %d: %w", memberID, err)
	}

	return nil
}

// isUniqueConstraintError reports whether err is a unique-index violation,
// across the sqlite and postgres drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}
