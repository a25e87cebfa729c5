package httpauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
)

// Routes holds the paths Register mounts.
type Routes struct {
	Register string
	Reissue  string
	Confirm  string
	Login    string
	Logout   string
	Me       string
	Password string
	Accounts string
}

// DefaultRoutes mirrors the confirmation link default.
var DefaultRoutes = Routes{
	Register: "/user/register",
	Reissue:  "/user/confirm",
	Confirm:  "/user/confirm/:token",
	Login:    "/user/login",
	Logout:   "/user/logout",
	Me:       "/user/me",
	Password: "/user/me/password",
	Accounts: "/users",
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type reissuePayload struct {
	Email string `json:"email"`
}

type passwordPayload struct {
	Current string `json:"current_password"`
	Next    string `json:"new_password"`
}

// Handlers exposes the account service over fiber.
type Handlers struct {
	service *accounts.Service
	cookie  string
}

// NewHandlers returns handlers bound to service.
func NewHandlers(service *accounts.Service) *Handlers {
	return &Handlers{
		service: service,
		cookie:  service.Config().Cookie.Name,
	}
}

// Register mounts every handler on r.
func (h *Handlers) Register(r fiber.Router, routes Routes) {
	protected := RequireSession(h.service, h.cookie)

	r.Post(routes.Register, h.register)
	r.Post(routes.Reissue, h.reissue)
	r.Get(routes.Confirm, h.confirm)
	r.Post(routes.Login, h.login)
	r.Post(routes.Logout, OptionalSession(h.service, h.cookie), h.logout)

	r.Get(routes.Me, protected, h.me)
	r.Patch(routes.Me, protected, h.update)
	r.Delete(routes.Me, protected, h.delete)
	r.Post(routes.Password, protected, h.changePassword)

	r.Get(routes.Accounts, protected, h.list)
	r.Get(routes.Accounts+"/:id", protected, h.get)
}

func (h *Handlers) register(c *fiber.Ctx) error {
	var msg accounts.RegisterAccountMessage
	if err := c.BodyParser(&msg); err != nil {
		return accounts.NewValidationError("malformed request body")
	}
	account, err := h.service.Register(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *Handlers) reissue(c *fiber.Ctx) error {
	var payload reissuePayload
	if err := c.BodyParser(&payload); err != nil {
		return accounts.NewValidationError("malformed request body")
	}
	if err := h.service.ReissueConfirmation(c.UserContext(), payload.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *Handlers) confirm(c *fiber.Ctx) error {
	account, err := h.service.ConfirmEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (h *Handlers) login(c *fiber.Ctx) error {
	var payload loginPayload
	if err := c.BodyParser(&payload); err != nil {
		return accounts.NewValidationError("malformed request body")
	}
	token, err := h.service.Login(c.UserContext(), payload.Email, payload.Password, NewFiberCookieWriter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token})
}

func (h *Handlers) logout(c *fiber.Ctx) error {
	session, _ := SessionFromFiber(c)
	h.service.Logout(c.UserContext(), session, NewFiberCookieWriter(c))
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handlers) me(c *fiber.Ctx) error {
	session, err := SessionFromFiber(c)
	if err != nil {
		return err
	}
	account, err := h.service.GetAccount(c.UserContext(), session.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (h *Handlers) update(c *fiber.Ctx) error {
	session, err := SessionFromFiber(c)
	if err != nil {
		return err
	}
	var patch accounts.AccountPatch
	if err := c.BodyParser(&patch); err != nil {
		return accounts.NewValidationError("malformed request body")
	}
	account, err := h.service.UpdateAccount(c.UserContext(), session.AccountID, patch)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

// delete only ever acts on the session owner; ids in the request are ignored.
func (h *Handlers) delete(c *fiber.Ctx) error {
	session, err := SessionFromFiber(c)
	if err != nil {
		return err
	}
	account, err := h.service.DeleteAccount(c.UserContext(), session, NewFiberCookieWriter(c))
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (h *Handlers) changePassword(c *fiber.Ctx) error {
	session, err := SessionFromFiber(c)
	if err != nil {
		return err
	}
	var payload passwordPayload
	if err := c.BodyParser(&payload); err != nil {
		return accounts.NewValidationError("malformed request body")
	}
	if err := h.service.ChangePassword(c.UserContext(), session, payload.Current, payload.Next); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) list(c *fiber.Ctx) error {
	records, err := h.service.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (h *Handlers) get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return accounts.NewValidationError("invalid account id")
	}
	account, err := h.service.GetAccount(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(account)
}
