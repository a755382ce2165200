package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRecentLimit = 20

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo auditdomain.Repository
}

type service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo auditdomain.Repository
}

func NewService(p ServiceParam) auditdomain.Service {
	return &service{
		db:   p.DB,
		log:  p.Log.Named("audit.service"),
		repo: p.Repo,
	}
}

func (s *service) Append(ctx context.Context, entry *auditdomain.AuditLog) error {
	return s.repo.Append(ctx, nil, entry)
}

func (s *service) RecentModerationActions(ctx context.Context, groupID int64, limit int) ([]auditdomain.AuditLog, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.RecentModeration(ctx, nil, groupID, limit)
}

func (s *service) Export(ctx context.Context, req auditdomain.ExportRequest) (*auditdomain.ExportResult, error) {
	query := s.db.WithContext(ctx).Model(&auditdomain.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate, req.EndDate)

	if req.GroupID != nil {
		query = query.Where("group_id = ?", *req.GroupID)
	}
	if len(req.Kinds) > 0 {
		query = query.Where("kind IN ?", req.Kinds)
	}

	var entries []auditdomain.AuditLog
	if err := query.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	var data []byte
	var err error
	switch req.Format {
	case auditdomain.ExportFormatCSV:
		data, err = formatCSV(entries)
	case auditdomain.ExportFormatJSON:
		data, err = json.Marshal(entries)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return &auditdomain.ExportResult{
		Data:     data,
		Checksum: hex.EncodeToString(sum[:]),
		Format:   req.Format,
		Count:    len(entries),
	}, nil
}

func formatCSV(entries []auditdomain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"timestamp", "kind", "group_id", "user_id", "action", "detail"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range entries {
		row := []string{
			e.CreatedAt.Format(time.RFC3339),
			e.Kind,
			optionalID(e.GroupID),
			optionalID(e.UserID),
			e.Action,
			string(e.Detail),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func optionalID(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
