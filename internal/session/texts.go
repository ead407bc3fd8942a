package session

import "fmt"

// Texts holds every reply the controller sends. Fields ending in Format are fmt templates.
type Texts struct {
	GreetingFormat         string // first name
	PricePrompt            string
	InvalidPrice           string
	ResultFormat           string // price, rate, total
	Instruction            string
	ChooseAction           string
	MainMenu               string
	Cancelled              string
	AdminPanel             string
	AccessDenied           string
	StatisticsFormat       string // users, calculations, rate
	RatePromptFormat       string // current rate
	InvalidRate            string
	RateChangedFormat      string // new rate
	BroadcastPrompt        string
	BroadcastStarted       string
	BroadcastSummaryFormat string // delivered, failed
}

// DefaultTexts returns the Russian replies.
func DefaultTexts() Texts {
	return Texts{
		GreetingFormat: "Привет, %s! 👋\nЯ бот-калькулятор стоимости товаров.\nВыберите действие:",
		PricePrompt:    "💰 Введите цену в юанях:",
		InvalidPrice:   "❌ Пожалуйста, введите корректное число!\nНапример: 100 или 99.99",
		ResultFormat: "💵 **Результат расчета:**\n\n" +
			"Цена в юанях: %s ¥\n" +
			"Курс: 1 ¥ = %s ₽\n" +
			"**Итого: %s ₽**\n\n" +
			"**Стоимость доставки(Китай- до двери Дома): 700₽/кг (Оплачивается отдельно)🚛 Срок доставки: 15-20 дней**\n\n" +
			"**По всем вопросам обращаться @MidSaleShop **",
		Instruction: "📖 Инструкция по использованию:\n\n" +
			"1. Нажмите кнопку '🧮 Рассчитать'\n" +
			"2. Введите цену товара в юанях\n" +
			"3. Бот автоматически рассчитает стоимость в рублях\n\n" +
			"💡 *Пример:* 100 юаней = 1250 рублей (при курсе 12.5)\n\n" +
			"🚛Доставка:\n" +
			"• Стоимость доставки: 700₽/кг\n" +
			"• Срок доставки: 15-20 дней\n" +
			"• Тип доставки: Китай - до двери дома\n\n" +
			"По всем вопросам обращаться: @MidSaleShop",
		ChooseAction: "Выберите действие:",
		MainMenu:     "Главное меню:",
		Cancelled:    "Действие отменено.",
		AdminPanel:   "⚙️ **Админ-панель**\n\nВыберите действие:",
		AccessDenied: "❌ Доступ запрещен!",
		StatisticsFormat: "📊 **Статистика бота:**\n\n" +
			"• Всего пользователей: %d\n" +
			"• Всего расчетов: %d\n" +
			"• Текущий курс: %s ₽/¥",
		RatePromptFormat:  "💱 Текущий курс: %s\nВведите новый курс (например: 12.6):",
		InvalidRate:       "❌ Пожалуйста, введите корректное число!\nНапример: 12.5 или 12,6",
		RateChangedFormat: "✅ Курс успешно изменен на: %s",
		BroadcastPrompt:   "📢 Введите сообщение для рассылки:",
		BroadcastStarted:  "🔄 Начинаю рассылку...",
		BroadcastSummaryFormat: "📢 **Результат рассылки:**\n\n" +
			"✅ Успешно: %d\n" +
			"❌ Не доставлено: %d",
	}
}

func (t Texts) greeting(firstName string) string {
	return fmt.Sprintf(t.GreetingFormat, firstName)
}

func (t Texts) result(price, rate, total float64) string {
	return fmt.Sprintf(t.ResultFormat, FormatNumber(price), FormatNumber(rate), FormatAmount(total))
}

func (t Texts) statistics(users, calculations int64, rate float64) string {
	return fmt.Sprintf(t.StatisticsFormat, users, calculations, FormatNumber(rate))
}

func (t Texts) ratePrompt(rate float64) string {
	return fmt.Sprintf(t.RatePromptFormat, FormatNumber(rate))
}

func (t Texts) rateChanged(rate float64) string {
	return fmt.Sprintf(t.RateChangedFormat, FormatNumber(rate))
}

func (t Texts) broadcastSummary(delivered, failed int) string {
	return fmt.Sprintf(t.BroadcastSummaryFormat, delivered, failed)
}
