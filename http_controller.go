package users

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// Wire formats. Requests carry ISO dates; responses keep the
// day-first rendering the original API exposed.
const (
	birthDateRequestFormat  = time.DateOnly
	birthDateResponseFormat = "02-01-2006"
	tokenExpiryFormat       = "02-01-2006 15:04:05"
	errorTimestampFormat    = "03:04:05"
)

var usernamePattern = regexp.MustCompile(`^\w+$`)

// ErrorResponse is the error body rendered for typed failures.
type ErrorResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{
		Message:   message,
		Timestamp: time.Now().Format(errorTimestampFormat),
	}
}

// UserPayload is the account representation handed to clients. The
// password hash never leaves the backend.
type UserPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone_number,omitempty"`
}

func NewUserPayload(u *User) UserPayload {
	return UserPayload{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		BirthDate: u.BornOn().Format(birthDateResponseFormat),
		Address:   u.Address,
		Phone:     u.Phone,
	}
}

func newUserListPayload(records []*User) []UserPayload {
	out := make([]UserPayload, 0, len(records))
	for _, u := range records {
		out = append(out, NewUserPayload(u))
	}
	return out
}

// TokenPayload is the sign-in response body.
type TokenPayload struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
	ExpiresAt string `json:"expires_at"`
}

func NewTokenPayload(t *Token) TokenPayload {
	return TokenPayload{
		Token:     t.Raw,
		Type:      authScheme,
		Algorithm: t.Algorithm,
		ExpiresAt: t.ExpiresAt.Format(tokenExpiryFormat),
	}
}

// CreateUserPayload is the sign-up and full-update request body.
type CreateUserPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	BirthDate string `form:"birth_date" json:"birth_date"`
	Address   string `form:"address" json:"address"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(4, 32),
			validation.Match(usernamePattern).Error("you can use a-z, 0-9 and underscores"),
		),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 32)),
		validation.Field(&r.BirthDate,
			validation.Required,
			validation.Date(birthDateRequestFormat),
			validation.By(validatePastDate),
		),
	)
}

// ToUser converts the payload to the domain record plus the plaintext
// password the Service hashes.
func (r CreateUserPayload) ToUser() (*User, string, error) {
	birthDate, err := time.Parse(birthDateRequestFormat, r.BirthDate)
	if err != nil {
		return nil, "", err
	}

	return &User{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
		Email:     r.Email,
		BirthDate: birthDate,
		Address:   r.Address,
		Phone:     NormalizePhone(r.Phone),
	}, r.Password, nil
}

// CredentialsPayload is the sign-in request body. The pair is
// transient; nothing here is ever persisted.
type CredentialsPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r CredentialsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(4, 32),
			validation.Match(usernamePattern).Error("you can use a-z, 0-9 and underscores"),
		),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 32)),
	)
}

// UpdateUserPayload is the sparse PATCH body. Pointer fields keep the
// omitted/empty distinction intact through JSON decoding.
type UpdateUserPayload struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	BirthDate *string `json:"birth_date"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone_number"`
}

// Validate will run validation rules. Absent fields validate
// vacuously; present fields must be well formed.
func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Length(4, 32),
			validation.Match(usernamePattern).Error("you can use a-z, 0-9 and underscores"),
		),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(6, 32)),
		validation.Field(&r.BirthDate,
			validation.Date(birthDateRequestFormat),
			validation.By(validatePastDate),
		),
	)
}

// ToUserUpdate converts the payload into the core's sparse update.
func (r UpdateUserPayload) ToUserUpdate() (UserUpdate, error) {
	update := UserUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		Address:   r.Address,
	}

	if r.Phone != nil {
		normalized := NormalizePhone(*r.Phone)
		update.Phone = &normalized
	}

	if r.BirthDate != nil {
		birthDate, err := time.Parse(birthDateRequestFormat, *r.BirthDate)
		if err != nil {
			return UserUpdate{}, err
		}
		update.BirthDate = &birthDate
	}

	return update, nil
}

// NormalizePhone canonicalizes international numbers to E.164 and
// leaves anything else untouched. Phone is free text by contract, so
// unparseable input passes through as given.
func NormalizePhone(phone string) string {
	if phone == "" {
		return phone
	}

	parsed, err := phonenumbers.Parse(phone, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return phone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func validatePastDate(value any) error {
	raw, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}

	s, _ := raw.(string)
	if s == "" {
		return nil
	}

	date, err := time.Parse(birthDateRequestFormat, s)
	if err != nil {
		// The Date rule reports parse failures.
		return nil
	}

	if !date.Before(DateOnly(time.Now())) {
		return errors.New("birth date must be in the past")
	}
	return nil
}

// AuthController serves registration and sign-in.
type AuthController struct {
	Service *Service
	Logger  Logger
}

func NewAuthController(svc *Service) *AuthController {
	return &AuthController{
		Service: svc,
		Logger:  defLogger{},
	}
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// RegisterAuthRoutes mounts the public auth endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post("/auth/sign-up", controller.SignUp).SetName("auth.sign-up")
	app.Post("/auth/sign-in", controller.SignIn).SetName("auth.sign-in")
}

func (a *AuthController) SignUp(ctx router.Context) error {
	payload := new(CreateUserPayload)

	if err := ctx.Bind(payload); err != nil {
		return renderError(ctx, a.Logger, err)
	}

	if err := payload.Validate(); err != nil {
		return renderError(ctx, a.Logger, err)
	}

	user, password, err := payload.ToUser()
	if err != nil {
		return renderError(ctx, a.Logger, err)
	}

	created, err := a.Service.Create(ctx.Context(), user, password)
	if err != nil {
		return renderError(ctx, a.Logger, err)
	}

	return ctx.JSON(http.StatusCreated, NewUserPayload(created))
}

func (a *AuthController) SignIn(ctx router.Context) error {
	payload := new(CredentialsPayload)

	if err := ctx.Bind(payload); err != nil {
		return renderError(ctx, a.Logger, err)
	}

	if err := payload.Validate(); err != nil {
		return renderError(ctx, a.Logger, err)
	}

	token, err := a.Service.SignIn(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return renderError(ctx, a.Logger, err)
	}

	return ctx.JSON(http.StatusOK, NewTokenPayload(token))
}

// UserController serves the authenticated account endpoints.
type UserController struct {
	Service *Service
	Logger  Logger
}

func NewUserController(svc *Service) *UserController {
	return &UserController{
		Service: svc,
		Logger:  defLogger{},
	}
}

func (u *UserController) WithLogger(logger Logger) *UserController {
	if logger != nil {
		u.Logger = logger
	}
	return u
}

// RegisterUserRoutes mounts the account endpoints behind the given
// auth middleware.
func RegisterUserRoutes[T any](app router.Router[T], controller *UserController, protected router.MiddlewareFunc) {
	app.Get("/users/:id", controller.FindByID, protected).SetName("users.find-by-id")
	app.Get("/users", controller.FindByBirthDateRange, protected).SetName("users.birth-date-range")
	app.Patch("/users/self", controller.PartialUpdateSelf, protected).SetName("users.self.patch")
	app.Put("/users/self", controller.FullUpdateSelf, protected).SetName("users.self.put")
	app.Delete("/users/self", controller.DeleteSelf, protected).SetName("users.self.delete")
}

func (u *UserController) FindByID(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, NewErrorResponse("id must be a valid uuid"))
	}

	user, err := u.Service.FindByID(ctx.Context(), id)
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}
	if user == nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	return ctx.JSON(http.StatusOK, NewUserPayload(user))
}

func (u *UserController) FindByBirthDateRange(ctx router.Context) error {
	fromParam := ctx.Query("birth_date_from", "")
	toParam := ctx.Query("birth_date_to", "")

	from, err := time.Parse(birthDateRequestFormat, fromParam)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, NewErrorResponse("birth_date_from must be a yyyy-mm-dd date"))
	}
	to, err := time.Parse(birthDateRequestFormat, toParam)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, NewErrorResponse("birth_date_to must be a yyyy-mm-dd date"))
	}

	records, err := u.Service.FindAllByBirthDateRange(ctx.Context(), from, to)
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}

	return ctx.JSON(http.StatusOK, newUserListPayload(records))
}

func (u *UserController) PartialUpdateSelf(ctx router.Context) error {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return ctx.NoContent(http.StatusUnauthorized)
	}

	payload := new(UpdateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		return renderError(ctx, u.Logger, err)
	}
	if err := payload.Validate(); err != nil {
		return renderError(ctx, u.Logger, err)
	}

	existing, err := u.Service.FindByUsername(ctx.Context(), subject)
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}
	if existing == nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	update, err := payload.ToUserUpdate()
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}

	merged := update.Apply(*existing)
	updated, err := u.Service.Update(ctx.Context(), &merged, update.PlainPassword())
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}

	return ctx.JSON(http.StatusOK, NewUserPayload(updated))
}

func (u *UserController) FullUpdateSelf(ctx router.Context) error {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return ctx.NoContent(http.StatusUnauthorized)
	}

	payload := new(CreateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		return renderError(ctx, u.Logger, err)
	}
	if err := payload.Validate(); err != nil {
		return renderError(ctx, u.Logger, err)
	}

	existing, err := u.Service.FindByUsername(ctx.Context(), subject)
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}
	if existing == nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	user, password, err := payload.ToUser()
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}
	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt

	updated, err := u.Service.Update(ctx.Context(), user, password)
	if err != nil {
		return renderError(ctx, u.Logger, err)
	}

	return ctx.JSON(http.StatusOK, NewUserPayload(updated))
}

func (u *UserController) DeleteSelf(ctx router.Context) error {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return ctx.NoContent(http.StatusUnauthorized)
	}

	if err := u.Service.DeleteByUsername(ctx.Context(), subject); err != nil {
		return renderError(ctx, u.Logger, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// renderError maps the typed failure taxonomy to status codes:
// collisions, age and range violations are client errors, credential
// failures are forbidden, token failures unauthorized, storage
// conflicts 409 and anything else a plain 500. Validation errors keep
// the per-field map shape.
func renderError(ctx router.Context, logger Logger, err error) error {
	var fieldErrors validation.Errors
	if ok := asValidationErrors(err, &fieldErrors); ok {
		return ctx.JSON(http.StatusBadRequest, fieldErrors)
	}

	switch {
	case IsUsernameTaken(err), IsAgeNotAllowed(err), IsInvalidDateRange(err):
		return ctx.JSON(http.StatusBadRequest, NewErrorResponse(errorMessage(err)))
	case IsInvalidCredentials(err):
		return ctx.JSON(http.StatusForbidden, NewErrorResponse(errorMessage(err)))
	case IsInvalidToken(err):
		return ctx.JSON(http.StatusUnauthorized, NewErrorResponse(errorMessage(err)))
	case isStorageConflict(err):
		return ctx.JSON(http.StatusConflict, NewErrorResponse(errorMessage(err)))
	}

	logger.Error("request failed", "error", err)
	return ctx.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

func asValidationErrors(err error, target *validation.Errors) bool {
	if errs, ok := err.(validation.Errors); ok {
		*target = errs
		return true
	}
	return false
}
