package telegram

import (
	"fmt"

	"github.com/xivitoo/XiPadelGranada/internal/levels"
	"github.com/xivitoo/XiPadelGranada/internal/models"
)

func MainMenuKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: "🎾 Crear partido"}},
			{{Text: "📅 Partidos hoy"}, {Text: "👤 Mi perfil"}},
		},
		ResizeKeyboard: true,
	}
}

// LevelKeyboard lists every tier on the scale, three per row. flow is "reg"
// during registration and "match" during match creation.
func LevelKeyboard(flow string) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	var row []InlineKeyboardButton
	for rank, tier := range levels.Tiers() {
		row = append(row, InlineKeyboardButton{
			Text:         tier,
			CallbackData: fmt.Sprintf("lvl:%s:%d", flow, rank),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func PreferenceKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{
			{Text: models.PreferenceBackhand, CallbackData: "pref:" + models.PreferenceBackhand},
			{Text: models.PreferenceDrive, CallbackData: "pref:" + models.PreferenceDrive},
		},
		{
			{Text: models.PreferenceImpartial, CallbackData: "pref:" + models.PreferenceImpartial},
		},
	}}
}

func MatchActionsKeyboard(matchID uint) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Unirse", CallbackData: fmt.Sprintf("match:join:%d", matchID)}},
		{{Text: "Salir", CallbackData: fmt.Sprintf("match:leave:%d", matchID)}},
		{{Text: "Cancelar (creador)", CallbackData: fmt.Sprintf("match:cancel:%d", matchID)}},
		{{Text: "Confirmar reserva", CallbackData: fmt.Sprintf("match:confirm:%d", matchID)}},
	}}
}

func EvalPromptKeyboard(matchID uint) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Sí", CallbackData: fmt.Sprintf("eval:yes:%d", matchID)}},
		{{Text: "No", CallbackData: fmt.Sprintf("eval:no:%d", matchID)}},
	}}
}

type MarkTarget struct {
	PlayerID int64
	Name     string
}

// MarkPlayersKeyboard offers, for every other roster member, an "under" and
// an "over" mark.
func MarkPlayersKeyboard(matchID uint, targets []MarkTarget) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	for _, t := range targets {
		rows = append(rows, []InlineKeyboardButton{
			{Text: t.Name + " · Inferior", CallbackData: fmt.Sprintf("mark:low:%d:%d", matchID, t.PlayerID)},
		})
		rows = append(rows, []InlineKeyboardButton{
			{Text: t.Name + " · Superior", CallbackData: fmt.Sprintf("mark:high:%d:%d", matchID, t.PlayerID)},
		})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}
