package repository

import (
	"context"
	"errors"

	"distribuidora/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnRepository persists the return aggregate. Lines are only written through Create and ReplaceLines.
type ReturnRepository interface {
	Create(ctx context.Context, ret *model.Return) error
	Update(ctx context.Context, ret *model.Return) error
	ReplaceLines(ctx context.Context, ret *model.Return, lines []model.ReturnLine) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Return, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Return, error)
	LatestNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter ReturnFilter) ([]model.Return, int64, error)
	ListPending(ctx context.Context, customerID *uint) ([]model.Return, error)
	CountByOrder(ctx context.Context, orderID uint) (int64, error)
	CountByCreator(ctx context.Context, userID uint) (int64, error)
	Statistics(ctx context.Context, rng model.DateRange) (model.ReturnStatistics, error)
}

type returnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) Create(ctx context.Context, ret *model.Return) error {
	db := GetDB(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(ret).Error; err != nil {
		return err
	}
	return r.insertLines(db, ret)
}

func (r *returnRepository) Update(ctx context.Context, ret *model.Return) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(ret).Error
}

func (r *returnRepository) ReplaceLines(ctx context.Context, ret *model.Return, lines []model.ReturnLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("return_id = ?", ret.ID).Delete(&model.ReturnLine{}).Error; err != nil {
		return err
	}
	ret.Lines = lines
	return r.insertLines(db, ret)
}

func (r *returnRepository) insertLines(db *gorm.DB, ret *model.Return) error {
	if len(ret.Lines) == 0 {
		return nil
	}
	for i := range ret.Lines {
		ret.Lines[i].ID = 0
		ret.Lines[i].ReturnID = ret.ID
	}
	return db.Omit(clause.Associations).Create(&ret.Lines).Error
}

func (r *returnRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("return_id = ?", id).Delete(&model.ReturnLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Return{}).Error
}

func (r *returnRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("CreatedBy").
		Preload("OriginOrder").
		Preload("CompensationOrder").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Lines.Product").
		Preload("Lines.ReplacementProduct")
}

func (r *returnRepository) FindByID(ctx context.Context, id uint) (*model.Return, error) {
	var ret model.Return
	if err := r.preload(GetDB(ctx, r.db)).First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Return, error) {
	var ret model.Return
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id = ?", id).First(&ret).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) LatestNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var ret model.Return
	err := GetDB(ctx, r.db).Select("id", "return_number").
		Where("return_number LIKE ?", prefix+"%").
		Order("id desc").
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ret.ReturnNumber, nil
}

func (r *returnRepository) filtered(ctx context.Context, filter ReturnFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.Return{})
	if filter.CustomerID != nil {
		db = db.Where("returns.customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		db = db.Where("returns.status = ?", filter.Status)
	}
	if filter.Reason != "" {
		db = db.Where("returns.reason = ?", filter.Reason)
	}
	if filter.From != nil {
		db = db.Where("returns.returned_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("returns.returned_at < ?", *filter.To)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Joins("JOIN customers ON customers.id = returns.customer_id").
			Where("returns.return_number ILIKE ? OR customers.name ILIKE ?", pattern, pattern)
	}
	return db
}

func (r *returnRepository) List(ctx context.Context, filter ReturnFilter) ([]model.Return, int64, error) {
	var returns []model.Return
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.preload(filter.Page.scope(r.filtered(ctx, filter))).Select("returns.*")
	if err := query.Order("returns.returned_at desc").Find(&returns).Error; err != nil {
		return nil, 0, err
	}

	return returns, total, nil
}

func (r *returnRepository) ListPending(ctx context.Context, customerID *uint) ([]model.Return, error) {
	var returns []model.Return
	db := r.preload(GetDB(ctx, r.db)).Where("status = ?", model.ReturnStatusPending)
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}
	if err := db.Order("returned_at asc").Find(&returns).Error; err != nil {
		return nil, err
	}
	return returns, nil
}

// CountByOrder counts returns that reference the order as origin or as compensation.
func (r *returnRepository) CountByOrder(ctx context.Context, orderID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Return{}).
		Where("origin_order_id = ? OR compensation_order_id = ?", orderID, orderID).
		Count(&count).Error
	return count, err
}

func (r *returnRepository) CountByCreator(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Return{}).Where("created_by_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *returnRepository) Statistics(ctx context.Context, rng model.DateRange) (model.ReturnStatistics, error) {
	var rows []struct {
		Status string
		Reason string
		Count  int64
	}
	db := GetDB(ctx, r.db).Model(&model.Return{})
	if rng.From != nil {
		db = db.Where("returned_at >= ?", *rng.From)
	}
	if rng.To != nil {
		db = db.Where("returned_at < ?", *rng.To)
	}
	if err := db.Select("status, reason, COUNT(*) AS count").Group("status, reason").Scan(&rows).Error; err != nil {
		return model.ReturnStatistics{}, err
	}

	stats := model.ReturnStatistics{ByReason: make(map[string]int64, len(model.ReturnReasons))}
	for _, reason := range model.ReturnReasons {
		stats.ByReason[reason.Value] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByReason[row.Reason] += row.Count
		switch row.Status {
		case model.ReturnStatusPending:
			stats.Pending += row.Count
		case model.ReturnStatusCompensated:
			stats.Compensated += row.Count
		}
	}
	return stats, nil
}
