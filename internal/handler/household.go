package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/couples"
	"github.com/homematch/homematch/internal/email"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
)

const maxCodeAttempts = 5

type HouseholdHandler struct {
	householdStore *store.HouseholdStore
	userStore      *store.UserStore
	inviteStore    *store.InviteStore
	sessionStore   *store.SessionStore
	couplesSvc     *couples.Service
	emailClient    *email.Client
	logger         *slog.Logger
}

func NewHouseholdHandler(
	hs *store.HouseholdStore,
	us *store.UserStore,
	is *store.InviteStore,
	ss *store.SessionStore,
	cs *couples.Service,
	ec *email.Client,
	logger *slog.Logger,
) *HouseholdHandler {
	return &HouseholdHandler{
		householdStore: hs,
		userStore:      us,
		inviteStore:    is,
		sessionStore:   ss,
		couplesSvc:     cs,
		emailClient:    ec,
		logger:         logger,
	}
}

// Members lists the household's members with their user profiles.
func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	profiles, err := h.householdStore.ListMemberProfiles(householdID)
	if err != nil {
		h.logger.Error("list member profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if profiles == nil {
		profiles = []model.MemberProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// Invite emails a partner a code to join the caller's household. Admin only.
func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "only the household admin can send invites")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	household, err := h.householdStore.GetByID(ac.HouseholdID)
	if err != nil || household == nil {
		h.logger.Error("invite household lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	inviter, err := h.userStore.GetByID(ac.UserID)
	if err != nil || inviter == nil {
		h.logger.Error("invite inviter lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	invite, err := h.inviteStore.Create(req.Email, ac.HouseholdID, ac.UserID)
	if err != nil {
		h.logger.Error("create invite", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.emailClient.Configured() {
		if err := h.emailClient.SendInvite(req.Email, invite.Token, household.Name, inviter.Name); err != nil {
			h.logger.Error("send invite email", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to send invitation")
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"email":      invite.Email,
		"expires_at": invite.ExpiresAt,
	})
}

// Accept redeems an invite code, creating the user first if needed, and
// starts a session in the invite's household.
func (h *HouseholdHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)

	invite, errMsg := h.validateCode(req.Email, req.Code)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	user, err := h.userStore.GetByEmail(invite.Email)
	if err != nil {
		h.logger.Error("accept user lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		// New partner: the accept request doubles as registration.
		if strings.TrimSpace(req.Name) == "" || len(req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "name and a password of at least 8 characters are required for new accounts")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user, err = h.userStore.Create(invite.Email, strings.TrimSpace(req.Name), string(hash))
		if err != nil {
			h.logger.Error("create invited user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if _, err := h.householdStore.AddMember(invite.HouseholdID, user.ID, auth.RoleMember); err != nil {
		// Re-accepting while already a member is fine.
		existing, _ := h.householdStore.GetMember(invite.HouseholdID, user.ID)
		if existing == nil {
			h.logger.Error("add invited member", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	// Membership changed: yesterday's solo likes may now be matches.
	h.couplesSvc.Invalidate(invite.HouseholdID)

	sess, err := h.sessionStore.Create(user.ID, invite.HouseholdID)
	if err != nil {
		h.logger.Error("create invited session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	setSessionCookie(w, r, sess.Token)

	household, err := h.householdStore.GetByID(invite.HouseholdID)
	if err != nil {
		h.logger.Error("accept household lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"household": household,
	})
}

// validateCode checks the invite code for the given email, handling attempts
// and expiry. Returns the invite on success, or an error message on failure.
func (h *HouseholdHandler) validateCode(emailAddr, code string) (*model.Invite, string) {
	if emailAddr == "" || code == "" {
		return nil, "email and code are required"
	}

	latest, err := h.inviteStore.GetLatestByEmail(emailAddr)
	if err != nil {
		h.logger.Error("validate code lookup", "error", err)
		return nil, "internal error"
	}
	if latest == nil {
		return nil, "code has expired or already been used"
	}

	if latest.Attempts >= maxCodeAttempts {
		h.inviteStore.MarkUsed(latest.ID)
		return nil, "too many incorrect attempts"
	}

	if latest.Token != code {
		newAttempts, err := h.inviteStore.IncrementAttempts(latest.ID)
		if err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		if newAttempts >= maxCodeAttempts {
			h.inviteStore.MarkUsed(latest.ID)
			return nil, "too many incorrect attempts"
		}
		return nil, "incorrect code"
	}

	if err := h.inviteStore.MarkUsed(latest.ID); err != nil {
		h.logger.Error("mark invite used", "error", err)
		return nil, "internal error"
	}

	return latest, ""
}

// RemoveMember removes a member from the household. Admin only; admins
// cannot remove themselves.
func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if ac.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "only the household admin can remove members")
		return
	}

	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID == ac.UserID {
		writeError(w, http.StatusBadRequest, "cannot remove yourself")
		return
	}

	member, err := h.householdStore.GetMember(ac.HouseholdID, userID)
	if err != nil {
		h.logger.Error("remove member lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.householdStore.RemoveMember(ac.HouseholdID, userID); err != nil {
		h.logger.Error("remove member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.sessionStore.DeleteForUser(userID); err != nil {
		h.logger.Error("delete removed member sessions", "error", err)
	}

	// Fewer members changes the intersection.
	h.couplesSvc.Invalidate(ac.HouseholdID)

	w.WriteHeader(http.StatusNoContent)
}
