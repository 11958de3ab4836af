package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "photo-classifier/internal/application"
	"photo-classifier/internal/container"
	"photo-classifier/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я распознаю, что изображено на фотографии.

📸 Отправьте мне фото, и я покажу таблицу меток с вероятностями.

📋 Команды:
/model — выбрать модель
/rows — показать последний результат
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите модель командой /model
   • MobileNet V2 — что изображено на фото целиком
   • Coco SSD — какие объекты есть на фото и где они
2️⃣ Отправьте фото (можно файлом)
3️⃣ Получите таблицу: метка и уверенность в процентах

💡 При смене модели последнее фото распознаётся заново.`

	msgCancelled       = "❌ Операция отменена. Отправьте фото для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoRows          = "🤷 Модель ничего не нашла на этом фото."
	msgNoResult        = "Результатов пока нет. Отправьте фото."
	msgChooseModel     = "Выберите модель:"
	msgUnknownModel    = "❓ Неизвестная модель. Доступны: %s"
	msgModelSelected   = "✅ Модель: %s. Отправьте фото."
	msgDecodeError     = "⚠️ Не удалось прочитать изображение. Поддерживаются JPEG, PNG и GIF."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."

	callbackModelPrefix = "model:"
)

// Bot представляет Telegram-бота
type Bot struct {
	api            *tgbotapi.BotAPI
	users          *app.UserService
	classification *app.ClassificationService
	httpClient     *http.Client
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:            api,
		users:          c.UserService,
		classification: c.ClassificationService,
		httpClient:     http.DefaultClient,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				go b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото: распознавание идёт в фоне, более новое фото отменяет результат старого
	if fileID, ok := imageFileID(msg); ok {
		go b.handlePhoto(ctx, msg.From.ID, msg.Chat.ID, fileID)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.cancel(ctx, userID, chatID)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "model":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			b.sendModelKeyboard(ctx, userID, chatID)
			return
		}
		model, err := entity.ParseModelChoice(arg)
		if err != nil {
			b.sendMessage(chatID, fmt.Sprintf(msgUnknownModel, b.modelList()))
			return
		}
		go b.selectModel(ctx, userID, chatID, model)

	case "rows":
		user, err := b.classification.Rows(ctx, userID, chatID)
		if err != nil {
			log.Printf("Error getting user: %v", err)
			return
		}
		b.sendMessage(chatID, rowsReply(user))

	case "cancel":
		b.cancel(ctx, userID, chatID)
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleCallback обрабатывает нажатие кнопки выбора модели
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}

	if q.Message == nil || !strings.HasPrefix(q.Data, callbackModelPrefix) {
		return
	}
	model, err := entity.ParseModelChoice(strings.TrimPrefix(q.Data, callbackModelPrefix))
	if err != nil {
		log.Printf("Bad callback data %q: %v", q.Data, err)
		return
	}

	b.selectModel(ctx, q.From.ID, q.Message.Chat.ID, model)
}

// handlePhoto скачивает фото и запускает распознавание активной моделью
func (b *Bot) handlePhoto(ctx context.Context, userID, chatID int64, fileID string) {
	b.sendMessage(chatID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Printf("Error downloading photo: %v", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	out, err := b.classification.AcceptPhoto(ctx, userID, chatID, imageData)
	b.sendResult(chatID, out, err)
}

func (b *Bot) selectModel(ctx context.Context, userID, chatID int64, model entity.ModelChoice) {
	out, err := b.classification.SelectModel(ctx, userID, chatID, model)
	if err == nil && !out.Ran {
		b.sendMessage(chatID, fmt.Sprintf(msgModelSelected, model.Title()))
		return
	}
	b.sendResult(chatID, out, err)
}

// sendResult отправляет таблицу и, если есть, фото с рамками
func (b *Bot) sendResult(chatID int64, out *app.RunOutput, err error) {
	switch {
	case errors.Is(err, entity.ErrDecodeImage), errors.Is(err, entity.ErrNoImage):
		b.sendMessage(chatID, msgDecodeError)
		return
	case errors.Is(err, entity.ErrUnknownModel):
		b.sendMessage(chatID, fmt.Sprintf(msgUnknownModel, b.modelList()))
		return
	case err != nil:
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	// Прогон отменён через /cancel или перекрыт более новым фото или моделью
	if out.Superseded {
		return
	}

	b.sendMessage(chatID, formatRows(out.Model, out.Rows))

	if len(out.Annotated) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "detections.jpg", Bytes: out.Annotated})
		if _, err := b.api.Send(photo); err != nil {
			log.Printf("Error sending photo: %v", err)
		}
	}
}

func (b *Bot) sendModelKeyboard(ctx context.Context, userID, chatID int64) {
	user, err := b.users.Get(ctx, userID, chatID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, msgChooseModel)
	msg.ReplyMarkup = modelKeyboard(b.classification.Models(), user.Model)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (b *Bot) cancel(ctx context.Context, userID, chatID int64) {
	if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
		log.Printf("Error updating user: %v", err)
	}
}

func (b *Bot) modelList() string {
	names := make([]string, 0, 2)
	for _, m := range b.classification.Models() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
