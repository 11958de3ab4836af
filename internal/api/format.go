package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-classifier/internal/domain/entity"
)

// formatRows рисует таблицу результатов: метка и уверенность в процентах.
// rowsReply ответ на /rows: пустая таблица после успешного прогона отличается от её отсутствия
func rowsReply(user *entity.User) string {
	if user.Photo.Empty() || user.Rows == nil {
		return msgNoResult
	}
	return formatRows(user.Model, user.Rows)
}

func formatRows(model entity.ModelChoice, rows []entity.PredictionRow) string {
	if len(rows) == 0 {
		return msgNoRows
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 %s\n\n", model.Title())
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s %s — %d%%\n", progressBar(row.Percent()), row.Description, row.Percent())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// progressBar — текстовый индикатор из 10 делений
func progressBar(percent int) string {
	filled := (percent + 5) / 10
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// imageFileID достаёт file_id фото наибольшего размера или картинки, отправленной файлом
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

// modelKeyboard кнопки выбора модели, активная отмечена галочкой
func modelKeyboard(models []entity.ModelChoice, active entity.ModelChoice) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(models))
	for _, m := range models {
		title := m.Title()
		if m == active {
			title = "✅ " + title
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(title, callbackModelPrefix+string(m)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons)
}
