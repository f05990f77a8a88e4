package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/store"
)

// Directory manages households and their memberships.
type Directory struct {
	db     *store.DB
	now    func() time.Time
	pinTTL time.Duration
	logger *slog.Logger
}

// ResolveMembership returns the household the user belongs to.
func (d *Directory) ResolveMembership(ctx context.Context, userID string) (model.Membership, error) {
	m, err := d.db.Households.GetMemberByUser(ctx, userID)
	if err != nil {
		return model.Membership{}, err
	}
	if m == nil {
		return model.Membership{}, apperr.New(apperr.UserNotInHousehold)
	}
	return model.Membership{MemberID: m.ID, HouseholdID: m.HouseholdID, Role: m.Role}, nil
}

// RequireAdmin fails unless userID is an admin of householdID.
func (d *Directory) RequireAdmin(ctx context.Context, userID, householdID string) error {
	return requireAdmin(ctx, d.db.Set, userID, householdID)
}

// requireAdmin takes the store set explicitly so it can run inside a
// transaction.
func requireAdmin(ctx context.Context, s *store.Set, userID, householdID string) error {
	m, err := s.Households.GetMember(ctx, householdID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.New(apperr.NotHouseholdMember)
	}
	if m.Role != model.RoleAdmin {
		return apperr.New(apperr.NotHouseholdAdmin)
	}
	return nil
}

func (d *Directory) GetHousehold(ctx context.Context, householdID string) (*model.Household, error) {
	h, err := d.db.Households.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.New(apperr.NotFound)
	}
	return h, nil
}

func (d *Directory) ListMembers(ctx context.Context, householdID string) ([]model.HouseholdMember, error) {
	return d.db.Households.ListMembers(ctx, householdID)
}

type UpdateHouseholdInput struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
	Timezone *string `json:"timezone" validate:"omitnil,timezone"`
}

// UpdateHousehold writes only the provided fields. An empty update returns
// the current household without writing.
func (d *Directory) UpdateHousehold(ctx context.Context, householdID, userID string, in UpdateHouseholdInput) (*model.Household, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := d.RequireAdmin(ctx, userID, householdID); err != nil {
		return nil, err
	}
	if in.Name == nil && in.Timezone == nil {
		return d.GetHousehold(ctx, householdID)
	}
	h, err := d.db.Households.Update(ctx, householdID, in.Name, in.Timezone)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.New(apperr.NotFound)
	}
	d.logger.Info("household updated", "household_id", householdID, "user_id", userID)
	return h, nil
}

// actingAdmin loads the target member and verifies the acting user is an
// admin of the same household.
func actingAdmin(ctx context.Context, s *store.Set, memberID, actingUserID string) (*model.HouseholdMember, error) {
	target, err := s.Households.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.New(apperr.MemberNotFound)
	}
	acting, err := s.Households.GetMemberByUser(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if acting == nil || acting.HouseholdID != target.HouseholdID {
		return nil, apperr.New(apperr.MemberNotInSameHouse)
	}
	if acting.Role != model.RoleAdmin {
		return nil, apperr.New(apperr.NotHouseholdAdmin)
	}
	return target, nil
}

func (d *Directory) UpdateMemberRole(ctx context.Context, memberID string, role model.Role, actingUserID string) (*model.HouseholdMember, error) {
	if !role.Valid() {
		return nil, apperr.Field("role", "must be one of: admin, member")
	}

	var updated *model.HouseholdMember
	err := d.db.InTx(ctx, func(tx *store.Set) error {
		target, err := actingAdmin(ctx, tx, memberID, actingUserID)
		if err != nil {
			return err
		}
		if target.Role == role {
			updated = target
			return nil
		}
		if target.Role == model.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, target.HouseholdID); err != nil {
				return err
			}
		}
		ok, err := tx.Households.UpdateMemberRole(ctx, memberID, role)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CannotRemoveLast)
		}
		updated, err = tx.Households.GetMemberByID(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("member role changed", "member_id", memberID, "role", role, "by", actingUserID)
	return updated, nil
}

// RemoveMember deletes a membership. The last-admin rule is checked before
// the self-removal rule.
func (d *Directory) RemoveMember(ctx context.Context, memberID, actingUserID string) error {
	err := d.db.InTx(ctx, func(tx *store.Set) error {
		target, err := actingAdmin(ctx, tx, memberID, actingUserID)
		if err != nil {
			return err
		}
		if target.Role == model.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, target.HouseholdID); err != nil {
				return err
			}
		}
		if target.UserID == actingUserID {
			return apperr.New(apperr.CannotRemoveSelf)
		}
		ok, err := tx.Households.RemoveMember(ctx, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CannotRemoveLast)
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.logger.Info("member removed", "member_id", memberID, "by", actingUserID)
	return nil
}

func ensureAnotherAdmin(ctx context.Context, s *store.Set, householdID string) error {
	n, err := s.Households.CountAdmins(ctx, householdID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return apperr.New(apperr.CannotRemoveLast)
	}
	return nil
}

type RegisterHouseholdInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Timezone    string `json:"timezone" validate:"omitempty,timezone"`
	ProfileName string `json:"profile_name" validate:"max=80"`
}

// Registration is the result of creating or joining a household.
type Registration struct {
	Household *model.Household       `json:"household"`
	Member    *model.HouseholdMember `json:"member"`
}

// RegisterHousehold creates a household with userID as its first admin.
// Profile creation is best effort when bestEffortProfile is set; otherwise
// a profile failure fails the call after the household is committed.
func (d *Directory) RegisterHousehold(ctx context.Context, userID string, in RegisterHouseholdInput, bestEffortProfile bool) (*Registration, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ProfileName = strings.TrimSpace(in.ProfileName)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}

	var reg Registration
	err := d.db.InTx(ctx, func(tx *store.Set) error {
		existing, err := tx.Households.GetMemberByUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.AlreadyInHousehold)
		}
		h, err := tx.Households.Create(ctx, in.Name, in.Timezone)
		if err != nil {
			return err
		}
		m, err := tx.Households.AddMember(ctx, h.ID, userID, model.RoleAdmin)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.New(apperr.AlreadyInHousehold)
			}
			return err
		}
		reg = Registration{Household: h, Member: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("household registered", "household_id", reg.Household.ID, "user_id", userID)

	if err := d.ensureProfile(ctx, userID, in.ProfileName, bestEffortProfile); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *Directory) ensureProfile(ctx context.Context, userID, name string, bestEffort bool) error {
	if name == "" {
		name = "Member"
	}
	if _, err := d.db.Profiles.Create(ctx, userID, name); err != nil {
		if bestEffort {
			d.logger.Warn("profile creation failed", "user_id", userID, "error", err)
			return nil
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// InvitePIN is a freshly rotated household PIN.
type InvitePIN struct {
	PIN       string    `json:"pin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RotatePIN issues a new 6-digit join PIN valid for the configured TTL.
func (d *Directory) RotatePIN(ctx context.Context, householdID, userID string) (*InvitePIN, error) {
	if err := d.RequireAdmin(ctx, userID, householdID); err != nil {
		return nil, err
	}
	pin, err := generatePIN()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	expiresAt := d.now().UTC().Add(d.pinTTL)
	if err := d.db.Households.SetPIN(ctx, householdID, pin, string(hash), expiresAt); err != nil {
		return nil, err
	}
	d.logger.Info("household pin rotated", "household_id", householdID, "expires_at", expiresAt)
	return &InvitePIN{PIN: pin, ExpiresAt: expiresAt}, nil
}

func generatePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type JoinHouseholdInput struct {
	HouseholdID string `json:"household_id" validate:"required,uuid"`
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
	ProfileName string `json:"profile_name" validate:"max=80"`
}

// JoinHousehold adds userID as a member after checking the household PIN.
func (d *Directory) JoinHousehold(ctx context.Context, userID string, in JoinHouseholdInput) (*Registration, error) {
	in.ProfileName = strings.TrimSpace(in.ProfileName)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var reg Registration
	err := d.db.InTx(ctx, func(tx *store.Set) error {
		h, err := tx.Households.GetByID(ctx, in.HouseholdID)
		if err != nil {
			return err
		}
		if h == nil || h.PINHash == "" {
			return apperr.New(apperr.InvalidPIN)
		}
		if bcrypt.CompareHashAndPassword([]byte(h.PINHash), []byte(in.PIN)) != nil {
			return apperr.New(apperr.InvalidPIN)
		}
		if h.PINExpiresAt == nil || !d.now().Before(*h.PINExpiresAt) {
			return apperr.New(apperr.PINExpired)
		}
		existing, err := tx.Households.GetMemberByUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.AlreadyInHousehold)
		}
		m, err := tx.Households.AddMember(ctx, h.ID, userID, model.RoleMember)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.New(apperr.AlreadyInHousehold)
			}
			return err
		}
		reg = Registration{Household: h, Member: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("member joined", "household_id", reg.Household.ID, "user_id", userID)

	if err := d.ensureProfile(ctx, userID, in.ProfileName, true); err != nil {
		return nil, err
	}
	return &reg, nil
}
