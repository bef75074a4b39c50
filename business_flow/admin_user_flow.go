package businessflow

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/config"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// AdminUserFlow handles platform-wide user management. Bulk mutations follow
// the versioned-update discipline per target row: every target carries its own
// expected version, and the result partitions the input into updated ids and
// skipped ids (policy-protected, missing, stale version, or already in the
// requested state).
type AdminUserFlow interface {
	ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error)
	BlockUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error)
	UnblockUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error)
	PromoteUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error)
	DemoteUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error)
	RemoveUsers(ctx context.Context, actor *models.User, req *dto.RemoveUsersRequest, metadata *ClientMetadata) (*dto.RemoveUsersResult, error)
	ExportUsersXLSX(ctx context.Context) (string, []byte, error)
}

type AdminUserFlowImpl struct {
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	adminConfig config.AdminConfig
	db          *gorm.DB
}

func NewAdminUserFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	adminConfig config.AdminConfig,
	db *gorm.DB,
) AdminUserFlow {
	return &AdminUserFlowImpl{
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		adminConfig: adminConfig,
		db:          db,
	}
}

func (f *AdminUserFlowImpl) ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		pageSize = utils.MaxPageSize
	}

	filter := models.UserFilter{}
	if req.Search != nil && strings.TrimSpace(*req.Search) != "" {
		trimmed := strings.TrimSpace(*req.Search)
		filter.Search = &trimmed
	}

	orderBy := userOrderBy(req.SortBy, req.Order)

	users, err := f.userRepo.ByFilter(ctx, filter, orderBy, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
	}
	total, err := f.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to count users", err)
	}

	resp := &dto.ListUsersResponse{
		Users:    make([]dto.UserDTO, 0, len(users)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, user := range users {
		resp.Users = append(resp.Users, ToUserDTO(*user))
	}
	return resp, nil
}

func (f *AdminUserFlowImpl) BlockUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	// Blocking is the destructive direction, so self and superadmins are
	// policy-protected; unblocking carries no such filter.
	return f.updateStatus(ctx, actor, req, models.UserStatusBlocked, true, models.AuditActionUsersBlocked, metadata)
}

func (f *AdminUserFlowImpl) UnblockUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	return f.updateStatus(ctx, actor, req, models.UserStatusActive, false, models.AuditActionUsersUnblocked, metadata)
}

func (f *AdminUserFlowImpl) PromoteUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	return f.updateRole(ctx, actor, req, models.UserRoleAdmin, models.AuditActionUsersPromoted, metadata)
}

func (f *AdminUserFlowImpl) DemoteUsers(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	return f.updateRole(ctx, actor, req, models.UserRoleUser, models.AuditActionUsersDemoted, metadata)
}

func (f *AdminUserFlowImpl) updateStatus(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, status models.UserStatus, protect bool, auditAction string, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	if len(req.Users) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No users selected", ErrNoUsersSelected)
	}

	targets := req.Users
	var preSkipped []uint
	if protect {
		var err error
		targets, preSkipped, err = f.filterProtectedTargets(ctx, actor, req.Users)
		if err != nil {
			return nil, NewBusinessError("BULK_USER_UPDATE_FAILED", "Failed to load target users", err)
		}
	}

	result := newBulkUserResult(len(req.Users), preSkipped)
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, target := range targets {
			affected, err := f.userRepo.UpdateStatusVersioned(txCtx, target.ID, target.Version, status)
			if err != nil {
				return err
			}
			if affected == 1 {
				result.UpdatedIDs = append(result.UpdatedIDs, target.ID)
			} else {
				result.SkippedIDs = appendUnique(result.SkippedIDs, target.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("BULK_USER_UPDATE_FAILED", "Failed to update user status", err)
	}

	f.finishBulkResult(ctx, actor, result, auditAction, metadata)
	return result, nil
}

func (f *AdminUserFlowImpl) updateRole(ctx context.Context, actor *models.User, req *dto.BulkUserUpdateRequest, role models.UserRole, auditAction string, metadata *ClientMetadata) (*dto.BulkUserResult, error) {
	if len(req.Users) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No users selected", ErrNoUsersSelected)
	}

	targets, preSkipped, err := f.filterRoleUpdateTargets(ctx, actor, req.Users, role)
	if err != nil {
		return nil, NewBusinessError("BULK_USER_UPDATE_FAILED", "Failed to load target users", err)
	}

	result := newBulkUserResult(len(req.Users), preSkipped)
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, target := range targets {
			affected, err := f.userRepo.UpdateRoleVersioned(txCtx, target.ID, target.Version, role)
			if err != nil {
				return err
			}
			if affected == 1 {
				result.UpdatedIDs = append(result.UpdatedIDs, target.ID)
			} else {
				result.SkippedIDs = appendUnique(result.SkippedIDs, target.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("BULK_USER_UPDATE_FAILED", "Failed to update user role", err)
	}

	f.finishBulkResult(ctx, actor, result, auditAction, metadata)
	return result, nil
}

// RemoveUsers hard-deletes the allowed targets; self and superadmins are
// always protected. Removal carries no version guard: a deleted row cannot
// conflict with anyone afterwards.
func (f *AdminUserFlowImpl) RemoveUsers(ctx context.Context, actor *models.User, req *dto.RemoveUsersRequest, metadata *ClientMetadata) (*dto.RemoveUsersResult, error) {
	if len(req.IDs) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No users selected", ErrNoUsersSelected)
	}

	targets := make([]dto.UserVersionRef, 0, len(req.IDs))
	for _, id := range req.IDs {
		targets = append(targets, dto.UserVersionRef{ID: id})
	}
	allowed, preSkipped, err := f.filterProtectedTargets(ctx, actor, targets)
	if err != nil {
		return nil, NewBusinessError("REMOVE_USERS_FAILED", "Failed to load target users", err)
	}

	var deleted int64
	if len(allowed) > 0 {
		ids := make([]uint, 0, len(allowed))
		for _, target := range allowed {
			ids = append(ids, target.ID)
		}
		deleted, err = f.userRepo.DeleteByIDs(ctx, ids)
		if err != nil {
			return nil, NewBusinessError("REMOVE_USERS_FAILED", "Failed to remove users", err)
		}
	}

	f.writeAuditLog(ctx, actor, models.AuditActionUsersRemoved, metadata)

	return &dto.RemoveUsersResult{
		Deleted:    deleted,
		Skipped:    len(preSkipped),
		SkippedIDs: preSkipped,
	}, nil
}

// ExportUsersXLSX renders every user into a single-sheet workbook and returns
// the suggested file name with the serialized bytes.
func (f *AdminUserFlowImpl) ExportUsersXLSX(ctx context.Context) (string, []byte, error) {
	users, err := f.userRepo.ByFilter(ctx, models.UserFilter{}, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_USERS_FAILED", "Failed to load users", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Users"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "uuid", "name", "email", "role", "status", "version", "created_at", "last_login_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, user := range users {
		lastLogin := ""
		if user.LastLoginAt != nil {
			lastLogin = user.LastLoginAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(user.ID), 10),
			user.UUID.String(),
			user.Name,
			user.Email,
			string(user.Role),
			string(user.Status),
			strconv.Itoa(user.Version),
			user.CreatedAt.UTC().Format(time.RFC3339),
			lastLogin,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_USERS_FAILED", "Failed to serialize workbook", err)
	}

	name := fmt.Sprintf("users_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return name, buf.Bytes(), nil
}

// filterProtectedTargets drops targets that are missing, the acting admin, or
// on the superadmin allowlist. Returns the allowed targets and the pre-skipped ids.
func (f *AdminUserFlowImpl) filterProtectedTargets(ctx context.Context, actor *models.User, targets []dto.UserVersionRef) ([]dto.UserVersionRef, []uint, error) {
	byID, err := f.loadTargets(ctx, targets)
	if err != nil {
		return nil, nil, err
	}

	allowed := make([]dto.UserVersionRef, 0, len(targets))
	preSkipped := make([]uint, 0)
	for _, target := range targets {
		user, ok := byID[target.ID]
		switch {
		case !ok:
			preSkipped = append(preSkipped, target.ID)
		case actor != nil && target.ID == actor.ID:
			preSkipped = append(preSkipped, target.ID)
		case f.isSuperadmin(user.Email):
			preSkipped = append(preSkipped, target.ID)
		default:
			allowed = append(allowed, target)
		}
	}
	return allowed, preSkipped, nil
}

// filterRoleUpdateTargets applies the role-change policy: superadmins are
// untouchable, and the acting admin may only target themselves when demoting.
func (f *AdminUserFlowImpl) filterRoleUpdateTargets(ctx context.Context, actor *models.User, targets []dto.UserVersionRef, role models.UserRole) ([]dto.UserVersionRef, []uint, error) {
	byID, err := f.loadTargets(ctx, targets)
	if err != nil {
		return nil, nil, err
	}

	allowed := make([]dto.UserVersionRef, 0, len(targets))
	preSkipped := make([]uint, 0)
	for _, target := range targets {
		user, ok := byID[target.ID]
		if !ok {
			preSkipped = append(preSkipped, target.ID)
			continue
		}
		if f.isSuperadmin(user.Email) {
			preSkipped = append(preSkipped, target.ID)
			continue
		}
		if actor != nil && target.ID == actor.ID {
			selfDemotion := user.Role == models.UserRoleAdmin && role == models.UserRoleUser
			if !selfDemotion {
				preSkipped = append(preSkipped, target.ID)
				continue
			}
		}
		allowed = append(allowed, target)
	}
	return allowed, preSkipped, nil
}

func (f *AdminUserFlowImpl) loadTargets(ctx context.Context, targets []dto.UserVersionRef) (map[uint]*models.User, error) {
	ids := make([]uint, 0, len(targets))
	for _, target := range targets {
		ids = append(ids, target.ID)
	}
	users, err := f.userRepo.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	return byID, nil
}

func (f *AdminUserFlowImpl) isSuperadmin(email string) bool {
	return slices.Contains(f.adminConfig.SuperadminEmails, strings.ToLower(email))
}

func (f *AdminUserFlowImpl) finishBulkResult(ctx context.Context, actor *models.User, result *dto.BulkUserResult, auditAction string, metadata *ClientMetadata) {
	result.Updated = len(result.UpdatedIDs)
	result.Skipped = len(result.SkippedIDs)
	pre := fmt.Sprintf("%d users were updated", result.Updated)
	if result.Skipped > 0 {
		result.Message = fmt.Sprintf("%s from %d; %d skipped due to restrictions, version mismatch, or already being in the requested state.",
			pre, result.Requested, result.Skipped)
	} else {
		result.Message = pre
	}
	f.writeAuditLog(ctx, actor, auditAction, metadata)
}

func (f *AdminUserFlowImpl) writeAuditLog(ctx context.Context, actor *models.User, action string, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		Action:  action,
		Success: utils.ToPtr(true),
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	_ = f.auditRepo.Save(ctx, entry)
}

func newBulkUserResult(requested int, preSkipped []uint) *dto.BulkUserResult {
	result := &dto.BulkUserResult{
		Requested:  requested,
		UpdatedIDs: make([]uint, 0, requested),
		SkippedIDs: make([]uint, 0),
	}
	for _, id := range preSkipped {
		result.SkippedIDs = appendUnique(result.SkippedIDs, id)
	}
	return result
}

func appendUnique(ids []uint, id uint) []uint {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func userOrderBy(sortBy, order string) string {
	column := "created_at"
	switch sortBy {
	case "name":
		column = "name"
	case "email":
		column = "email"
	case "role":
		column = "role"
	case "status":
		column = "status"
	case "createdAt", "created_at", "":
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}
