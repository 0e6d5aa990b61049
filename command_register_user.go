package users

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

type RegisterUserMessage struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone_number"`
	Address   string    `json:"address"`
	BirthDate time.Time `json:"birth_date"`
	Password  string    `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler registers accounts off the request path, e.g.
// from seed scripts or an ops CLI. The Service applies the same
// uniqueness and age rules as the HTTP sign-up route.
type RegisterUserHandler struct {
	service *Service
}

func NewRegisterUserHandler(service *Service) *RegisterUserHandler {
	return &RegisterUserHandler{service: service}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user := &User{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Username:  getUsername(event.Username, event.Email),
		Email:     event.Email,
		Phone:     NormalizePhone(event.Phone),
		Address:   event.Address,
		BirthDate: event.BirthDate,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	if _, err := h.service.Create(ctx, user, event.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
