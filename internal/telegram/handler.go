package telegram

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/xivitoo/XiPadelGranada/internal/levels"
	"github.com/xivitoo/XiPadelGranada/internal/models"
	"github.com/xivitoo/XiPadelGranada/internal/services"
	"github.com/xivitoo/XiPadelGranada/internal/ws"
)

const timeLayout = "2006-01-02 15:04"

// sender is the slice of the Bot API the handler talks to. *Client satisfies
// it; tests plug in a stub.
type sender interface {
	SendMessage(chatID int64, text, parseMode string, replyMarkup interface{}) (int64, error)
	EditMessageText(chatID, messageID int64, text, parseMode string, replyMarkup interface{}) error
	AnswerCallbackQuery(callbackID, text string, showAlert bool) error
}

type UpdateHandler struct {
	client    sender
	state     *StateManager
	playerSvc *services.PlayerService
	matchSvc  *services.MatchService
	hub       *ws.Hub
}

func NewUpdateHandler(
	client sender,
	state *StateManager,
	playerSvc *services.PlayerService,
	matchSvc *services.MatchService,
	hub *ws.Hub,
) *UpdateHandler {
	return &UpdateHandler{
		client:    client,
		state:     state,
		playerSvc: playerSvc,
		matchSvc:  matchSvc,
		hub:       hub,
	}
}

func (h *UpdateHandler) Handle(upd Update) {
	if upd.CallbackQuery != nil {
		h.handleCallback(upd.CallbackQuery)
		return
	}
	if upd.Message != nil {
		h.handleMessage(upd.Message)
	}
}

func (h *UpdateHandler) handleMessage(msg *Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case isCommand(msg, "start"):
		h.cmdStart(userID, chatID)
		return
	case isCommand(msg, "crear"):
		h.cmdCreate(userID, chatID)
		return
	case isCommand(msg, "hoy"):
		h.cmdToday(userID, chatID)
		return
	case isCommand(msg, "cancelar"):
		h.state.Clear(userID)
		h.client.SendMessage(chatID, "Operación cancelada.", "", MainMenuKeyboard())
		return
	}

	switch text {
	case "🎾 Crear partido":
		h.cmdCreate(userID, chatID)
		return
	case "📅 Partidos hoy":
		h.cmdToday(userID, chatID)
		return
	case "👤 Mi perfil":
		h.cmdProfile(userID, chatID)
		return
	}

	us := h.state.Get(userID)
	switch us.State {
	case StateRegisterName:
		h.onRegisterName(userID, chatID, text)
	case StateMatchStart:
		h.onMatchStart(userID, chatID, text)
	case StateMatchEnd:
		h.onMatchEnd(userID, chatID, text)
	case StateMatchLocation:
		h.onMatchLocation(userID, chatID, text)
	case StateMatchPrice:
		h.onMatchPrice(userID, chatID, text)
	default:
		h.client.SendMessage(chatID, "Usa /start o los botones del menú.", "", MainMenuKeyboard())
	}
}

// ------------------- registro -------------------

func (h *UpdateHandler) cmdStart(userID, chatID int64) {
	h.state.Clear(userID)

	if player, err := h.playerSvc.Get(userID); err == nil {
		h.client.SendMessage(chatID,
			fmt.Sprintf("¡Hola de nuevo, <b>%s</b>! Ya estás registrado (nivel %s).", player.Name, levels.TierName(player.Level)),
			"HTML", MainMenuKeyboard())
		return
	}

	h.state.Set(userID, &UserState{State: StateRegisterName})
	h.client.SendMessage(chatID, "¡Hola! Bienvenido al bot de pádel. ¿Cuál es tu nombre completo?", "", nil)
}

func (h *UpdateHandler) onRegisterName(userID, chatID int64, name string) {
	if len(name) < 1 || len(name) > 100 {
		h.client.SendMessage(chatID, "El nombre debe tener entre 1 y 100 caracteres. Inténtalo de nuevo:", "", nil)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Name = name
		s.State = StateRegisterLevel
	})
	h.client.SendMessage(chatID, "Indica tu nivel aproximado:", "", LevelKeyboard("reg"))
}

func (h *UpdateHandler) onRegisterLevel(cb *CallbackQuery, rank int) {
	userID := cb.From.ID
	us := h.state.Get(userID)
	if us.State != StateRegisterLevel {
		h.client.AnswerCallbackQuery(cb.ID, "Empieza con /start.", true)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Level = rank
		s.State = StateRegisterPref
	})
	h.client.AnswerCallbackQuery(cb.ID, "", false)
	if cb.Message != nil {
		h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
			fmt.Sprintf("Nivel elegido: <b>%s</b>\n\nIndica tu preferencia de juego:", levels.TierName(rank)),
			"HTML", PreferenceKeyboard())
	}
}

func (h *UpdateHandler) onRegisterPreference(cb *CallbackQuery, preference string) {
	userID := cb.From.ID
	us := h.state.Get(userID)
	if us.State != StateRegisterPref {
		h.client.AnswerCallbackQuery(cb.ID, "Empieza con /start.", true)
		return
	}

	_, _, err := h.playerSvc.Register(userID, us.Name, us.Level, preference)
	if err != nil {
		log.Printf("[bot] register %d: %v", userID, err)
		h.client.AnswerCallbackQuery(cb.ID, "Ha ocurrido un error. Inténtalo de nuevo.", true)
		return
	}
	h.state.Clear(userID)

	h.client.AnswerCallbackQuery(cb.ID, "", false)
	if cb.Message != nil {
		h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
			"¡Registro completado! Ya puedes usar el bot para crear o unirte a partidos.", "", nil)
	}
	h.client.SendMessage(cb.From.ID, "¿Qué quieres hacer?", "", MainMenuKeyboard())
}

func (h *UpdateHandler) cmdProfile(userID, chatID int64) {
	player, err := h.playerSvc.Get(userID)
	if err != nil {
		h.client.SendMessage(chatID, "Debes registrarte primero con /start.", "", nil)
		return
	}
	h.client.SendMessage(chatID,
		fmt.Sprintf("👤 <b>Tu perfil</b>\n\nNombre: <b>%s</b>\nNivel: <b>%s</b>\nPreferencia: <b>%s</b>",
			player.Name, levels.TierName(player.Level), player.Preference),
		"HTML", nil)
}

// ------------------- partidos -------------------

func (h *UpdateHandler) cmdCreate(userID, chatID int64) {
	if _, err := h.playerSvc.Get(userID); err != nil {
		h.client.SendMessage(chatID, "Debes registrarte primero con /start.", "", nil)
		return
	}

	h.state.Set(userID, &UserState{State: StateMatchLevel})
	h.client.SendMessage(chatID, "Indica el nivel del partido:", "", LevelKeyboard("match"))
}

func (h *UpdateHandler) onMatchLevel(cb *CallbackQuery, rank int) {
	userID := cb.From.ID
	us := h.state.Get(userID)
	if us.State != StateMatchLevel {
		h.client.AnswerCallbackQuery(cb.ID, "Empieza con /crear.", true)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Draft.Level = rank
		s.State = StateMatchStart
	})
	h.client.AnswerCallbackQuery(cb.ID, "", false)
	if cb.Message != nil {
		h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
			fmt.Sprintf("Nivel del partido: <b>%s</b>\n\nIndica la hora de inicio (YYYY-MM-DD HH:MM):", levels.TierName(rank)),
			"HTML", nil)
	}
}

func (h *UpdateHandler) onMatchStart(userID, chatID int64, text string) {
	start, err := time.ParseInLocation(timeLayout, text, time.Local)
	if err != nil {
		h.client.SendMessage(chatID, "Formato no válido. Usa YYYY-MM-DD HH:MM, por ejemplo 2025-06-01 10:00:", "", nil)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Draft.StartTime = start
		s.State = StateMatchEnd
	})
	h.client.SendMessage(chatID, "Indica la hora de fin (YYYY-MM-DD HH:MM):", "", nil)
}

func (h *UpdateHandler) onMatchEnd(userID, chatID int64, text string) {
	end, err := time.ParseInLocation(timeLayout, text, time.Local)
	if err != nil {
		h.client.SendMessage(chatID, "Formato no válido. Usa YYYY-MM-DD HH:MM, por ejemplo 2025-06-01 11:00:", "", nil)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Draft.EndTime = end
		s.State = StateMatchLocation
	})
	h.client.SendMessage(chatID, "Indica el lugar del partido:", "", nil)
}

func (h *UpdateHandler) onMatchLocation(userID, chatID int64, text string) {
	if text == "" {
		h.client.SendMessage(chatID, "Indica el lugar del partido:", "", nil)
		return
	}

	h.state.UpdateField(userID, func(s *UserState) {
		s.Draft.Location = text
		s.State = StateMatchPrice
	})
	h.client.SendMessage(chatID, "Indica el precio por persona:", "", nil)
}

func (h *UpdateHandler) onMatchPrice(userID, chatID int64, text string) {
	price, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil {
		h.client.SendMessage(chatID, "El precio debe ser un número, por ejemplo 10.50:", "", nil)
		return
	}

	us := h.state.Get(userID)
	draft := us.Draft

	match, err := h.matchSvc.Create(userID, draft.Level, draft.StartTime, draft.EndTime, draft.Location, price)
	if err != nil {
		h.state.Clear(userID)
		h.client.SendMessage(chatID, userText(err)+" Usa /crear para intentarlo de nuevo.", "", MainMenuKeyboard())
		return
	}
	h.state.Clear(userID)

	text = fmt.Sprintf("¡Partido creado!\nNivel: <b>%s</b>\nHora: %s - %s\nLugar: %s\nPrecio por persona: %.2f €",
		levels.TierName(match.Level),
		match.StartTime.Format(timeLayout), match.EndTime.Format(timeLayout),
		match.Location, match.PricePerPerson)
	h.client.SendMessage(chatID, text, "HTML", MatchActionsKeyboard(match.ID))

	h.broadcast("match_created", map[string]interface{}{"match_id": match.ID, "level": match.Level})
}

func (h *UpdateHandler) cmdToday(userID, chatID int64) {
	matches, err := h.matchSvc.ListCompatibleToday(userID, time.Now())
	if err != nil {
		h.client.SendMessage(chatID, userText(err), "", nil)
		return
	}
	if len(matches) == 0 {
		h.client.SendMessage(chatID, "Hoy no hay partidos compatibles con tu nivel.", "", nil)
		return
	}

	lines := []string{"Partidos disponibles hoy compatibles con tu nivel:"}
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("- %s - %s | %s | Nivel %s | %.2f €",
			m.StartTime.Format("15:04"), m.EndTime.Format("15:04"),
			m.Location, levels.TierName(m.Level), m.PricePerPerson))
	}
	h.client.SendMessage(chatID, strings.Join(lines, "\n"), "", nil)

	for _, m := range matches {
		h.client.SendMessage(chatID,
			fmt.Sprintf("Partido en %s a las %s:", m.Location, m.StartTime.Format("15:04")),
			"", MatchActionsKeyboard(m.ID))
	}
}

// ------------------- callbacks -------------------

func (h *UpdateHandler) handleCallback(cb *CallbackQuery) {
	parts := strings.Split(cb.Data, ":")

	switch parts[0] {
	case "lvl":
		if len(parts) != 3 {
			break
		}
		rank, err := strconv.Atoi(parts[2])
		if err != nil || rank < 0 || rank > levels.MaxRank() {
			break
		}
		if parts[1] == "reg" {
			h.onRegisterLevel(cb, rank)
		} else {
			h.onMatchLevel(cb, rank)
		}
		return
	case "pref":
		if len(parts) != 2 {
			break
		}
		h.onRegisterPreference(cb, parts[1])
		return
	case "match":
		if len(parts) != 3 {
			break
		}
		matchID, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			break
		}
		h.onMatchAction(cb, parts[1], uint(matchID))
		return
	case "eval":
		if len(parts) != 3 {
			break
		}
		matchID, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			break
		}
		h.onEvalAnswer(cb, parts[1], uint(matchID))
		return
	case "mark":
		if len(parts) != 4 {
			break
		}
		matchID, err1 := strconv.ParseUint(parts[2], 10, 64)
		ratedID, err2 := strconv.ParseInt(parts[3], 10, 64)
		if err1 != nil || err2 != nil {
			break
		}
		h.onMark(cb, parts[1], uint(matchID), ratedID)
		return
	}

	h.client.AnswerCallbackQuery(cb.ID, "Datos no válidos.", true)
}

func (h *UpdateHandler) onMatchAction(cb *CallbackQuery, action string, matchID uint) {
	userID := cb.From.ID

	switch action {
	case "join":
		if err := h.matchSvc.Join(matchID, userID); err != nil {
			h.client.AnswerCallbackQuery(cb.ID, userText(err), true)
			return
		}
		h.client.AnswerCallbackQuery(cb.ID, "¡Te has unido al partido!", true)
		h.broadcast("player_joined", map[string]interface{}{"match_id": matchID, "player_id": userID})

	case "leave":
		if err := h.matchSvc.Leave(matchID, userID); err != nil {
			h.client.AnswerCallbackQuery(cb.ID, userText(err), true)
			return
		}
		h.client.AnswerCallbackQuery(cb.ID, "Has salido del partido.", true)
		h.broadcast("player_left", map[string]interface{}{"match_id": matchID, "player_id": userID})

	case "cancel":
		if err := h.matchSvc.Cancel(matchID, userID); err != nil {
			h.client.AnswerCallbackQuery(cb.ID, userText(err), true)
			return
		}
		h.client.AnswerCallbackQuery(cb.ID, "", false)
		if cb.Message != nil {
			h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
				"El partido ha sido cancelado por el creador.", "", nil)
		}
		h.broadcast("match_cancelled", map[string]interface{}{"match_id": matchID})

	case "confirm":
		if err := h.matchSvc.ConfirmReservation(matchID, userID); err != nil {
			h.client.AnswerCallbackQuery(cb.ID, userText(err), true)
			return
		}
		h.client.AnswerCallbackQuery(cb.ID, "¡Reserva confirmada!", true)
		h.broadcast("reservation_confirmed", map[string]interface{}{"match_id": matchID})

	default:
		h.client.AnswerCallbackQuery(cb.ID, "Datos no válidos.", true)
	}
}

// ------------------- evaluación -------------------

func (h *UpdateHandler) onEvalAnswer(cb *CallbackQuery, answer string, matchID uint) {
	raterID := cb.From.ID

	switch answer {
	case "yes":
		if err := h.playerSvc.RecordEvaluation(matchID, raterID, 0, models.VerdictConforms); err != nil {
			log.Printf("[bot] record conforms match %d rater %d: %v", matchID, raterID, err)
			h.client.AnswerCallbackQuery(cb.ID, "Ha ocurrido un error. Inténtalo de nuevo.", true)
			return
		}
		h.client.AnswerCallbackQuery(cb.ID, "", false)
		if cb.Message != nil {
			h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
				"¡Gracias! Se ha registrado que el nivel coincidió.", "", nil)
		}

	case "no":
		roster, err := h.matchSvc.Roster(matchID)
		if err != nil {
			h.client.AnswerCallbackQuery(cb.ID, "Ha ocurrido un error. Inténtalo de nuevo.", true)
			return
		}

		var targets []MarkTarget
		for _, e := range roster {
			if e.PlayerID == raterID {
				continue
			}
			name := fmt.Sprintf("Jugador %d", e.PlayerID)
			if p, err := h.playerSvc.Get(e.PlayerID); err == nil {
				name = p.Name
			}
			targets = append(targets, MarkTarget{PlayerID: e.PlayerID, Name: name})
		}
		if len(targets) == 0 {
			h.client.AnswerCallbackQuery(cb.ID, "No hay otros jugadores que marcar.", true)
			return
		}

		h.client.AnswerCallbackQuery(cb.ID, "", false)
		if cb.Message != nil {
			h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
				"Selecciona los jugadores que no cumplieron el nivel y su categoría:",
				"", MarkPlayersKeyboard(matchID, targets))
		}

	default:
		h.client.AnswerCallbackQuery(cb.ID, "Datos no válidos.", true)
	}
}

func (h *UpdateHandler) onMark(cb *CallbackQuery, direction string, matchID uint, ratedID int64) {
	verdict := ""
	switch direction {
	case "low":
		verdict = models.VerdictTooLow
	case "high":
		verdict = models.VerdictTooHigh
	default:
		h.client.AnswerCallbackQuery(cb.ID, "Datos no válidos.", true)
		return
	}

	if err := h.playerSvc.RecordEvaluation(matchID, cb.From.ID, ratedID, verdict); err != nil {
		log.Printf("[bot] record mark match %d rated %d: %v", matchID, ratedID, err)
		h.client.AnswerCallbackQuery(cb.ID, "Ha ocurrido un error. Inténtalo de nuevo.", true)
		return
	}

	h.client.AnswerCallbackQuery(cb.ID, "", false)
	if cb.Message != nil {
		h.client.EditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
			"Se ha registrado tu valoración. ¡Gracias!", "", nil)
	}
	h.broadcast("evaluation_recorded", map[string]interface{}{"match_id": matchID, "rated_id": ratedID, "verdict": verdict})
}

// ------------------- helpers -------------------

func (h *UpdateHandler) broadcast(event string, data map[string]interface{}) {
	if h.hub != nil {
		h.hub.Broadcast(ws.Event{Type: event, Data: data})
	}
}

// userText maps expected service outcomes to bot replies. Anything outside
// the taxonomy is reported generically and logged by the caller.
func userText(err error) string {
	switch {
	case errors.Is(err, services.ErrMatchNotFound):
		return "Este partido ya no existe."
	case errors.Is(err, services.ErrPlayerNotRegistered):
		return "Debes registrarte primero con /start."
	case errors.Is(err, services.ErrAlreadyCancelled):
		return "El partido está cancelado."
	case errors.Is(err, services.ErrAlreadyJoined):
		return "Ya estás en este partido."
	case errors.Is(err, services.ErrNotInRoster):
		return "No estás en este partido."
	case errors.Is(err, services.ErrCreatorCannotLeave):
		return "El creador no puede salir, puede cancelar el partido."
	case errors.Is(err, services.ErrLevelIncompatible):
		return "No cumples el requisito de nivel para este partido."
	case errors.Is(err, services.ErrNotAuthorized):
		return "Solo el creador puede hacer eso."
	case errors.Is(err, services.ErrInvalidSchedule):
		return "La hora de fin debe ser posterior a la de inicio."
	case errors.Is(err, services.ErrInvalidPrice):
		return "El precio debe ser un número positivo."
	default:
		return "Ha ocurrido un error. Inténtalo de nuevo."
	}
}

func isCommand(msg *Message, cmd string) bool {
	if msg.Entities == nil {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			cmdText := msg.Text[e.Offset : e.Offset+e.Length]
			cmdText = strings.Split(cmdText, "@")[0]
			return cmdText == "/"+cmd
		}
	}
	return false
}
