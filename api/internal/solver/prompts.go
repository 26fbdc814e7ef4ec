package solver

const proposePrompt = `Сгенерируй несколько способов для решения.
Для каждого способа:
1. Опиши стратегию
2. Выпиши список шагов
3. Вычисли сложность
4. Выяви возможные сложности

Выдели самое эффективное решение по критериям:
- Количество шагов
- Вычислительную сложность
- Вероятность правильного решения`

const generatePrompt = `Сгенерируй решение для этой задачи, рассуждай шаг за шагом.
Для каждого шага:
1. Объясняй что ты делаешь и почему
2. Показывай математические операции
3. Включай промежуточные результаты
4. Проверяй шаг на корректность

Каждый шаг оформляй в таком стиле:
{
    "explanation": "Четкое объяснение шага",
    "calculation": "Математические операции и их результат",
    "verification": "Как проверить этот шаг"
}

В конце добавь финальный ответ в формате:
{
    "final_answer": "Итоговый ответ уравнения",
}`

const verifyPrompt = `Проверь шаг решения на наличие ошибок.
Проверяй:
1. Математические операции
2. Алгебраические преобразования
3. Логику
4. Промежуточные результаты

Ответь в следующем формате:
VERIFICATION:
- Математические операции: [CORRECT/INCORRECT] с объяснением
- Алгебраические преобразования: [CORRECT/INCORRECT] с объяснением
- Логика: [CORRECT/INCORRECT] с объяснением
- Промежуточные результаты: [CORRECT/INCORRECT] с объяснением

FINAL_VERDICT: [CORRECT/INCORRECT]`

const adaptPrompt = `На основе прошлых попыток решения, адаптируй решение:
1. Избегать прошлых ошибок
2. Использовать успешную стратегию
3. Оптимизировать путь решения
4. Учитывать альтернативные методы`
