package session

// State is the step of a user's conversation.
type State int

const (
	// StateNone is the idle state; users without a stored entry are in it.
	StateNone State = iota
	StateAwaitingPrice
	StateAwaitingExchangeRate
	StateAwaitingBroadcast
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateAwaitingPrice:
		return "awaiting_price"
	case StateAwaitingExchangeRate:
		return "awaiting_exchange_rate"
	case StateAwaitingBroadcast:
		return "awaiting_broadcast"
	}
	return "unknown"
}

// Command is a menu action recognized from button text.
type Command int

const (
	CommandUnknown Command = iota
	CommandCalculate
	CommandInstructions
	CommandAdmin
	CommandBack
	CommandCancel
	CommandStatistics
	CommandChangeRate
	CommandBroadcast
)

var commandNames = map[Command]string{
	CommandUnknown:      "unknown",
	CommandCalculate:    "calculate",
	CommandInstructions: "instructions",
	CommandAdmin:        "admin",
	CommandBack:         "back",
	CommandCancel:       "cancel",
	CommandStatistics:   "statistics",
	CommandChangeRate:   "change_rate",
	CommandBroadcast:    "broadcast",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Labels are the reply keyboard button texts.
type Labels struct {
	Calculate    string
	Instructions string
	Admin        string
	Back         string
	Cancel       string
	Statistics   string
	ChangeRate   string
	Broadcast    string
}

// DefaultLabels returns the Russian button texts.
func DefaultLabels() Labels {
	return Labels{
		Calculate:    "🧮 Рассчитать",
		Instructions: "📖 Инструкция",
		Admin:        "⚙️ Админ-панель",
		Back:         "🔙 Назад",
		Cancel:       "🔙 Отмена",
		Statistics:   "📊 Статистика",
		ChangeRate:   "💱 Изменить курс",
		Broadcast:    "📢 Рассылка",
	}
}

// Classifier maps exact button texts to commands.
type Classifier map[string]Command

// NewClassifier builds the lookup table for l. Empty labels are skipped.
func NewClassifier(l Labels) Classifier {
	table := Classifier{}
	for label, cmd := range map[string]Command{
		l.Calculate:    CommandCalculate,
		l.Instructions: CommandInstructions,
		l.Admin:        CommandAdmin,
		l.Back:         CommandBack,
		l.Cancel:       CommandCancel,
		l.Statistics:   CommandStatistics,
		l.ChangeRate:   CommandChangeRate,
		l.Broadcast:    CommandBroadcast,
	} {
		if label != "" {
			table[label] = cmd
		}
	}
	return table
}

// Classify returns the command for text or CommandUnknown.
func (c Classifier) Classify(text string) Command {
	if cmd, ok := c[text]; ok {
		return cmd
	}
	return CommandUnknown
}
