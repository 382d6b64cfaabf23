// Package discord routes gateway interactions to the ticket services.
package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/intake"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	pdiscord "github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const genericFailure = "An error occurred. Please try again."

// Responder is the part of *discordgo.Session used to answer interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Router dispatches interactions by command name, component custom id or form id.
type Router struct {
	responder Responder
	tickets   *service.TicketService
	catalog   *service.CatalogService
	panels    *service.PanelService
	guild     platform.Platform
	metrics   *observability.Metrics
	logger    *zap.Logger
	cfg       config.TicketConfig
	timeout   time.Duration

	commands   map[string]route
	components map[string]route
	forms      map[string]route
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Responder Responder
	Tickets   *service.TicketService
	Catalog   *service.CatalogService
	Panels    *service.PanelService
	Platform  platform.Platform
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Config    config.TicketConfig
	Timeout   time.Duration
}

// request is one interaction after actor resolution.
type request struct {
	interaction *discordgo.Interaction
	actor       domain.Actor
	channelID   snowflake.ID
	// param is the part of a custom id after ":".
	param   string
	values  []string
	options map[string]*discordgo.ApplicationCommandInteractionDataOption
	form    intake.Values
}

// reply is what a handler answers with: a form to open, or an ephemeral message.
type reply struct {
	form *intake.Form
	msg  platform.Message
}

type handlerFunc func(ctx context.Context, req *request) (reply, error)

type route struct {
	handle handlerFunc
	// opensForm routes answer immediately, because a form cannot follow a deferred ack.
	// Their checks only compare member ids, so role lookups are skipped for them.
	opensForm bool
}

// NewRouter builds the router and its route tables.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &Router{
		responder: deps.Responder,
		tickets:   deps.Tickets,
		catalog:   deps.Catalog,
		panels:    deps.Panels,
		guild:     deps.Platform,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       deps.Config,
		timeout:   timeout,
	}
	r.commands = map[string]route{
		CommandTicketSetup: {handle: r.ticketSetup},
		CommandTicket:      {handle: r.ticketCommand},
		CommandCloseTicket: {handle: r.closeTicket},
		CommandPanelText:   {handle: r.panelText},
		CommandSetPrices:   {handle: r.setPrices},
		CommandAddRank:     {handle: r.addRank},
		CommandRemoveRank:  {handle: r.removeRank},
		CommandAddMethod:   {handle: r.addMethod},
		CommandSetPayment:  {handle: r.setPayment},
	}
	r.components = map[string]route{
		service.CustomCategorySelect:      {handle: r.selectCategory, opensForm: true},
		service.CustomRankSelect:          {handle: r.selectRank, opensForm: true},
		service.CustomPrioritySelect:      {handle: r.selectPriority},
		service.CustomCallStaff:           {handle: r.callStaff},
		service.CustomCallStaffConfirm:    {handle: r.confirmCallStaff},
		service.CustomClaim:               {handle: r.toggleClaim},
		service.CustomClose:               {handle: r.beginClose},
		service.CustomFeedback:            {handle: r.openFeedback, opensForm: true},
		service.CustomPaymentMethod:       {handle: r.selectPaymentMethod},
		service.CustomPaymentID:           {handle: r.paymentID},
		service.CustomPaymentQR:           {handle: r.paymentQR},
		service.CustomCompleteTransaction: {handle: r.openTransaction, opensForm: true},
	}
	r.forms = map[string]route{
		intake.FormStaff:       {handle: r.submitTicket},
		intake.FormAppeal:      {handle: r.submitTicket},
		intake.FormBug:         {handle: r.submitTicket},
		intake.FormReport:      {handle: r.submitTicket},
		intake.FormRank:        {handle: r.submitTicket},
		intake.FormGeneral:     {handle: r.submitTicket},
		intake.FormTransaction: {handle: r.submitTransaction},
		intake.FormFeedback:    {handle: r.submitFeedback},
	}
	return r
}

// Handler adapts the router to discordgo's event handler signature.
func (r *Router) Handler() func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.HandleInteraction(ctx, ic.Interaction)
	}
}

// HandleInteraction answers one interaction. Failures are reported to the user
// ephemerally and never escape.
func (r *Router) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	start := time.Now()
	kind, key, rt, req, ok := r.match(i)
	if !ok {
		r.logger.Debug("unrouted interaction", zap.String("kind", kind), zap.String("key", key))
		return
	}
	var st runState
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("interaction handler panicked", zap.String("key", key), zap.Any("panic", p))
			if !st.answered {
				r.answer(ctx, i, st.deferred, platform.Message{Content: genericFailure})
			}
			r.metrics.RecordInteraction(kind, key, apperrors.CodeInternal, time.Since(start))
		}
	}()

	code := r.run(ctx, i, rt, req, &st)
	r.metrics.RecordInteraction(kind, key, code, time.Since(start))
}

// runState tracks how far an interaction got answering, so a recovered panic can still
// tell the user something went wrong.
type runState struct {
	deferred bool
	answered bool
}

func (r *Router) match(i *discordgo.Interaction) (string, string, route, *request, bool) {
	req := &request{interaction: i}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		rt, ok := r.commands[data.Name]
		req.options = make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
		for _, opt := range data.Options {
			req.options[opt.Name] = opt
		}
		return "command", data.Name, rt, req, ok
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		base, param, _ := strings.Cut(data.CustomID, ":")
		rt, ok := r.components[base]
		req.param = param
		req.values = data.Values
		return "component", base, rt, req, ok
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		base, param, _ := strings.Cut(data.CustomID, ":")
		rt, ok := r.forms[base]
		req.param = param
		req.form = ModalValues(data.Components)
		return "form", base, rt, req, ok
	default:
		return "other", "", route{}, nil, false
	}
}

func (r *Router) run(ctx context.Context, i *discordgo.Interaction, rt route, req *request, st *runState) string {
	if !rt.opensForm {
		err := r.responder.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		}, discordgo.WithContext(ctx))
		if err != nil {
			r.logger.Error("interaction ack failed", zap.Error(err))
			st.answered = true
			return apperrors.CodeInternal
		}
		st.deferred = true
	}

	var (
		res reply
		err error
	)
	req.actor, req.channelID, err = r.resolveActor(ctx, i, !rt.opensForm)
	if err == nil {
		res, err = rt.handle(ctx, req)
	}
	st.answered = true
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		message := domainErr.Message
		if domainErr.HTTPStatus >= 500 {
			message = genericFailure
			r.logger.Error("interaction failed", zap.String("user", req.actor.ID.String()), zap.Error(err))
		} else {
			r.logger.Debug("interaction rejected", zap.String("code", domainErr.Code), zap.String("reason", domainErr.Message))
		}
		r.answer(ctx, i, st.deferred, platform.Message{Content: message})
		return domainErr.Code
	}

	if res.form != nil {
		if err := r.responder.InteractionRespond(i, Modal(*res.form), discordgo.WithContext(ctx)); err != nil {
			r.logger.Error("open form failed", zap.String("form", res.form.ID), zap.Error(err))
			return apperrors.CodeInternal
		}
		return ""
	}
	r.answer(ctx, i, st.deferred, res.msg)
	return ""
}

func (r *Router) answer(ctx context.Context, i *discordgo.Interaction, deferred bool, msg platform.Message) {
	embeds := pdiscord.Embeds(msg.Embeds)
	components := pdiscord.Components(msg.Rows)
	var err error
	if deferred {
		content := msg.Content
		_, err = r.responder.InteractionResponseEdit(i, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
			Files:      pdiscord.Files(msg.Files),
		}, discordgo.WithContext(ctx))
	} else {
		err = r.responder.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    msg.Content,
				Embeds:     embeds,
				Components: components,
				Files:      pdiscord.Files(msg.Files),
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		}, discordgo.WithContext(ctx))
	}
	if err != nil {
		r.logger.Error("interaction reply failed", zap.Error(err))
	}
}

// resolveActor identifies the member behind an interaction. Staff and admin role
// membership is looked up only when withRoles is set.
func (r *Router) resolveActor(ctx context.Context, i *discordgo.Interaction, withRoles bool) (domain.Actor, snowflake.ID, error) {
	if i.Member == nil || i.Member.User == nil {
		return domain.Actor{}, 0, apperrors.NewPreconditionFailed("This bot can only be used inside the server.", nil)
	}
	id, err := snowflake.ParseString(i.Member.User.ID)
	if err != nil {
		return domain.Actor{}, 0, apperrors.NewInternalError(err)
	}
	channelID, err := snowflake.ParseString(i.ChannelID)
	if err != nil {
		return domain.Actor{}, 0, apperrors.NewInternalError(err)
	}

	actor := domain.Actor{
		ID:    id,
		Name:  i.Member.User.Username,
		Admin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
	}
	if !withRoles {
		return actor, channelID, nil
	}
	staff, err := r.guild.RoleByName(ctx, r.cfg.StaffRoleName)
	if err != nil {
		return domain.Actor{}, 0, apperrors.NewInternalError(err)
	}
	adminRole, err := r.guild.RoleByName(ctx, r.cfg.AdminRoleName)
	if err != nil {
		return domain.Actor{}, 0, apperrors.NewInternalError(err)
	}
	for _, roleID := range i.Member.Roles {
		if staff != nil && roleID == staff.ID.String() {
			actor.Staff = true
		}
		if adminRole != nil && roleID == adminRole.ID.String() {
			actor.Admin = true
		}
	}
	return actor, channelID, nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.Admin {
		return apperrors.NewForbidden("You need administrator permissions to use this command.")
	}
	return nil
}

func (req *request) stringOption(name string) string {
	opt, ok := req.options[name]
	if !ok || opt == nil {
		return ""
	}
	return opt.StringValue()
}

func (req *request) numberOption(name string) (float64, error) {
	opt, ok := req.options[name]
	if !ok || opt == nil {
		return 0, apperrors.NewValidationError(name+" is required.", map[string]any{"option": name})
	}
	return opt.FloatValue(), nil
}

func (req *request) firstValue() (string, error) {
	if len(req.values) == 0 {
		return "", apperrors.NewValidationError("Please choose an option.", nil)
	}
	return req.values[0], nil
}
