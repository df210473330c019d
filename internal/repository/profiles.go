package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"STUDYHUB_BACK-END/internal/models"
)

const profileColumns = `id, email, password_hash, nickname, avatar_url, bio, role, provider, provider_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Nickname, &p.AvatarURL, &p.Bio,
		&p.Role, &p.Provider, &p.ProviderID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts a profile, filling ID and timestamps when empty
func (p *Postgres) CreateProfile(ctx context.Context, pr *models.Profile) error {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	now := time.Now().UTC()
	pr.CreatedAt, pr.UpdatedAt = now, now
	if pr.Role == "" {
		pr.Role = models.RoleUser
	}
	if pr.Provider == "" {
		pr.Provider = models.ProviderEmail
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		pr.ID, pr.Email, pr.PasswordHash, pr.Nickname, pr.AvatarURL, pr.Bio,
		pr.Role, pr.Provider, pr.ProviderID, pr.CreatedAt, pr.UpdatedAt)
	return mapErr("create profile", err)
}

// GetProfile loads a profile by id
func (p *Postgres) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	pr, err := scanProfile(p.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	return pr, mapErr("get profile", err)
}

// GetProfileByEmail loads a profile by email (case-insensitive)
func (p *Postgres) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	pr, err := scanProfile(p.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
	return pr, mapErr("get profile by email", err)
}

// UpsertOAuthProfile creates or refreshes the profile of a social login.
// Nickname and avatar chosen by the user are never overwritten.
func (p *Postgres) UpsertOAuthProfile(ctx context.Context, pr *models.Profile) (*models.Profile, error) {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	now := time.Now().UTC()

	out, err := scanProfile(p.db.QueryRow(ctx,
		`INSERT INTO profiles (id, email, nickname, avatar_url, role, provider, provider_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'user', $5, $6, $7, $7)
		 ON CONFLICT (provider, provider_id) DO UPDATE
		   SET email      = COALESCE(profiles.email, EXCLUDED.email),
		       avatar_url = COALESCE(profiles.avatar_url, EXCLUDED.avatar_url),
		       updated_at = EXCLUDED.updated_at
		 RETURNING `+profileColumns,
		pr.ID, pr.Email, pr.Nickname, pr.AvatarURL, pr.Provider, pr.ProviderID, now))
	return out, mapErr("upsert oauth profile", err)
}

// UpdateProfile patches the editable profile fields; nil leaves a field unchanged
func (p *Postgres) UpdateProfile(ctx context.Context, id uuid.UUID, nickname, avatarURL, bio *string) (*models.Profile, error) {
	out, err := scanProfile(p.db.QueryRow(ctx,
		`UPDATE profiles
		    SET nickname   = COALESCE($2, nickname),
		        avatar_url = COALESCE($3, avatar_url),
		        bio        = COALESCE($4, bio),
		        updated_at = now()
		  WHERE id = $1
		 RETURNING `+profileColumns,
		id, nickname, avatarURL, bio))
	return out, mapErr("update profile", err)
}

// UpdatePasswordHash replaces a profile's password hash
func (p *Postgres) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE profiles SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return mapErr("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRole changes a profile's role
func (p *Postgres) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return mapErr("set role", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAdminIDs returns ids of every admin profile
func (p *Postgres) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := p.db.Query(ctx, `SELECT id FROM profiles WHERE role = 'admin'`)
	if err != nil {
		return nil, mapErr("list admins", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	return ids, mapErr("list admins", err)
}

const creatorSettingsColumns = `user_id, display_name, intro, question_price, accepts_questions, revenue_share_percent, created_at, updated_at`

func scanCreatorSettings(row pgx.Row) (*models.CreatorSettings, error) {
	var s models.CreatorSettings
	err := row.Scan(&s.UserID, &s.DisplayName, &s.Intro, &s.QuestionPrice, &s.AcceptsQuestions,
		&s.RevenueSharePercent, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCreatorSettings loads a creator's settings
func (p *Postgres) GetCreatorSettings(ctx context.Context, userID uuid.UUID) (*models.CreatorSettings, error) {
	s, err := scanCreatorSettings(p.db.QueryRow(ctx,
		`SELECT `+creatorSettingsColumns+` FROM creator_settings WHERE user_id = $1`, userID))
	return s, mapErr("get creator settings", err)
}

// UpsertCreatorSettings creates or replaces the editable creator settings.
// revenue_share_percent is admin-managed and kept as is.
func (p *Postgres) UpsertCreatorSettings(ctx context.Context, s *models.CreatorSettings) (*models.CreatorSettings, error) {
	out, err := scanCreatorSettings(p.db.QueryRow(ctx,
		`INSERT INTO creator_settings (user_id, display_name, intro, question_price, accepts_questions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (user_id) DO UPDATE
		   SET display_name      = EXCLUDED.display_name,
		       intro             = EXCLUDED.intro,
		       question_price    = EXCLUDED.question_price,
		       accepts_questions = EXCLUDED.accepts_questions,
		       updated_at        = now()
		 RETURNING `+creatorSettingsColumns,
		s.UserID, s.DisplayName, s.Intro, s.QuestionPrice, s.AcceptsQuestions))
	return out, mapErr("upsert creator settings", err)
}

// GetPaymentAccount loads a user's bank account
func (p *Postgres) GetPaymentAccount(ctx context.Context, userID uuid.UUID) (*models.PaymentAccount, error) {
	var a models.PaymentAccount
	err := p.db.QueryRow(ctx,
		`SELECT user_id, bank_name, account_number, account_holder, updated_at
		   FROM user_payment_accounts WHERE user_id = $1`, userID).
		Scan(&a.UserID, &a.BankName, &a.AccountNumber, &a.AccountHolder, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr("get payment account", err)
	}
	return &a, nil
}

// UpsertPaymentAccount creates or replaces a user's bank account
func (p *Postgres) UpsertPaymentAccount(ctx context.Context, a *models.PaymentAccount) (*models.PaymentAccount, error) {
	var out models.PaymentAccount
	err := p.db.QueryRow(ctx,
		`INSERT INTO user_payment_accounts (user_id, bank_name, account_number, account_holder, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id) DO UPDATE
		   SET bank_name = EXCLUDED.bank_name,
		       account_number = EXCLUDED.account_number,
		       account_holder = EXCLUDED.account_holder,
		       updated_at = now()
		 RETURNING user_id, bank_name, account_number, account_holder, updated_at`,
		a.UserID, a.BankName, a.AccountNumber, a.AccountHolder).
		Scan(&out.UserID, &out.BankName, &out.AccountNumber, &out.AccountHolder, &out.UpdatedAt)
	if err != nil {
		return nil, mapErr("upsert payment account", err)
	}
	return &out, nil
}

// LatestActiveVerification returns the newest unused, unexpired reset code
func (p *Postgres) LatestActiveVerification(ctx context.Context, userID uuid.UUID) (*models.AuthVerification, error) {
	var v models.AuthVerification
	err := p.db.QueryRow(ctx,
		`SELECT id, user_id, email, code, expires_at, used, created_at FROM auth_verifications
		  WHERE user_id = $1 AND used = false AND expires_at > now()
		  ORDER BY created_at DESC LIMIT 1`, userID).
		Scan(&v.ID, &v.UserID, &v.Email, &v.Code, &v.ExpiresAt, &v.Used, &v.CreatedAt)
	if err != nil {
		return nil, mapErr("latest verification", err)
	}
	return &v, nil
}

// CreateVerification stores a reset code
func (p *Postgres) CreateVerification(ctx context.Context, v *models.AuthVerification) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO auth_verifications (id, user_id, email, code, expires_at, used, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6)`,
		v.ID, v.UserID, v.Email, v.Code, v.ExpiresAt, v.CreatedAt)
	return mapErr("create verification", err)
}

// FindVerification returns an unused, unexpired code for the email
func (p *Postgres) FindVerification(ctx context.Context, email, code string) (*models.AuthVerification, error) {
	var v models.AuthVerification
	err := p.db.QueryRow(ctx,
		`SELECT id, user_id, email, code, expires_at, used, created_at FROM auth_verifications
		  WHERE lower(email) = lower($1) AND code = $2 AND used = false AND expires_at > now()
		  ORDER BY created_at DESC LIMIT 1`, email, code).
		Scan(&v.ID, &v.UserID, &v.Email, &v.Code, &v.ExpiresAt, &v.Used, &v.CreatedAt)
	if err != nil {
		return nil, mapErr("find verification", err)
	}
	return &v, nil
}

// MarkVerificationUsed consumes a reset code
func (p *Postgres) MarkVerificationUsed(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE auth_verifications SET used = true WHERE id = $1 AND used = false`, id)
	if err != nil {
		return mapErr("mark verification used", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
