package controller

import (
	"ai-docagent-be/internal/dto"
	"ai-docagent-be/internal/pkg/serverutils"
	"ai-docagent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	AcceptProposal(ctx *fiber.Ctx) error
	RejectProposal(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type agentController struct {
	agentService service.IAgentService
}

func NewAgentController(agentService service.IAgentService) IAgentController {
	return &agentController{
		agentService: agentService,
	}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent/v1")
	h.Post("session", c.CreateSession)
	h.Get("session/:id", c.ShowSession)
	h.Get("session/:id/messages", c.GetMessages)
	h.Post("session/:id/message", c.SendMessage)
	h.Post("session/:id/cancel", c.Cancel)
	h.Post("session/:id/retry", c.Retry)
	h.Post("session/:id/proposal/:proposalId/accept", c.AcceptProposal)
	h.Post("session/:id/proposal/:proposalId/reject", c.RejectProposal)
	h.Delete("session/:id", c.DeleteSession)
}

func (c *agentController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateAgentSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create agent session", res))
}

func (c *agentController) ShowSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.agentService.GetSession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show agent session", res))
}

func (c *agentController) SendMessage(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	var req dto.SendAgentMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.SessionId = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.SendMessage(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process agent message", res))
}

func (c *agentController) Cancel(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	if err := c.agentService.Cancel(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success cancel agent turn", nil))
}

func (c *agentController) Retry(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.agentService.Retry(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success retry agent request", res))
}

func (c *agentController) GetMessages(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.agentService.GetMessages(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get agent messages", res))
}

func (c *agentController) AcceptProposal(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	proposalId := ctx.Params("proposalId")

	res, err := c.agentService.AcceptProposal(ctx.Context(), id, proposalId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success accept proposal", res))
}

func (c *agentController) RejectProposal(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	proposalId := ctx.Params("proposalId")

	res, err := c.agentService.RejectProposal(ctx.Context(), id, proposalId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reject proposal", res))
}

func (c *agentController) DeleteSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	if err := c.agentService.DeleteSession(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete agent session", nil))
}
