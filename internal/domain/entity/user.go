package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu   UserState = "main_menu"  // В главном меню
	StateProcessing UserState = "processing" // Идёт распознавание
)

// User представляет сессию пользователя: выбранную модель, последнее фото и таблицу результатов
type User struct {
	ID     int64       // ID пользователя (Telegram User ID или ID сессии)
	ChatID int64       // Telegram Chat ID
	State  UserState   // Текущее состояние пользователя
	Model  ModelChoice // Активная модель
	Photo  *SourceImage
	RunSeq uint64 // номер последнего запущенного распознавания
	Rows   []PredictionRow
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
		Model:  DefaultModel,
	}
}

// BeginRun фиксирует новый запуск распознавания и возвращает его номер.
// Все ранее запущенные прогоны с этого момента считаются устаревшими.
func (u *User) BeginRun() uint64 {
	u.RunSeq++
	u.State = StateProcessing
	return u.RunSeq
}

// CommitRun сохраняет строки, только если прогон seq всё ещё последний.
func (u *User) CommitRun(seq uint64, rows []PredictionRow) bool {
	if seq != u.RunSeq {
		return false
	}
	// nil остаётся признаком «прогона ещё не было»
	if rows == nil {
		rows = []PredictionRow{}
	}
	u.Rows = rows
	u.State = StateMainMenu
	return true
}

// Cancel отменяет текущий прогон: номер сдвигается, и его результат будет отброшен как устаревший.
// Фото и таблица остаются.
func (u *User) Cancel() {
	if u.State == StateProcessing {
		u.RunSeq++
	}
	u.State = StateMainMenu
}

// AbortRun возвращает пользователя в меню после неудачного прогона, таблица не меняется.
func (u *User) AbortRun(seq uint64) {
	if seq == u.RunSeq {
		u.State = StateMainMenu
	}
}

// Clone возвращает копию пользователя. Фото неизменяемо и разделяется.
func (u *User) Clone() *User {
	c := *u
	if u.Rows != nil {
		c.Rows = make([]PredictionRow, len(u.Rows))
		copy(c.Rows, u.Rows)
	}
	return &c
}
