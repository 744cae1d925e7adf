package extract

// receiptPrompt builds the instruction block for receipt extraction.
// The model must return a single strict-JSON object.
func receiptPrompt() string {
	basePrompt :=
		"You are a receipt parser for photos of purchase receipts.\n\n" +
			"Task:\n" +
			"- Read the attached receipt image.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"merchant\": string (store or vendor name)\n" +
			"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
			"- \"amount\": number (grand total paid, always positive)\n" +
			"- \"currency\": string ISO 4217 code (e.g. \"INR\", \"USD\") or null if unreadable\n" +
			"- \"tax_amount\": number or null\n" +
			"- \"tip_amount\": number or null\n" +
			"- \"payment_method\": string (e.g. \"CARD\", \"CASH\", \"UPI\") or null\n" +
			"- \"card_last4\": string of 4 digits or null\n" +
			"- \"category\": string, a short spending category guess (e.g. \"Food & Dining\", \"Groceries\", \"Transportation\")\n" +
			"- \"items\": array of {\"name\": string, \"quantity\": number or null, \"price\": number or null} or null\n" +
			"- \"confidence\": number between 0 and 1 for overall extraction confidence\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- \"amount\" is the final total after tax and tip, never a subtotal.\n" +
			"- If the receipt shows no date, use your best guess from context; never invent a future date.\n" +
			"- Never leave \"category\" empty; use \"Uncategorized\" when unsure.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return basePrompt + rulesPrompt
}

// statementPrompt builds the instruction block for statement extraction.
// Amounts are signed in the raw output; the transform derives the
// income/expense direction from the sign.
func statementPrompt() string {
	basePrompt :=
		"You are a financial statement parser for bank statements (PDF or image).\n\n" +
			"Task:\n" +
			"- Parse ALL transactions in the attached statement.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"account_info\": object with:\n" +
			"    - \"bank_name\": string or null\n" +
			"    - \"account_number_masked\": string or null (mask all but the last 4 digits)\n" +
			"    - \"statement_period\": string or null (e.g. \"2025-09-01 to 2025-09-30\")\n" +
			"- \"transactions\": array of objects, each with:\n" +
			"    - \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
			"    - \"description\": string\n" +
			"    - \"merchant\": string or null (counterparty name if identifiable)\n" +
			"    - \"amount\": number (positive for money IN, negative for money OUT)\n" +
			"    - \"currency\": string ISO 4217 code or null\n" +
			"    - \"category\": string, a short spending category guess\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- If the statement has separate \"paid out\" / \"paid in\" columns, convert to a single signed \"amount\".\n" +
			"- Preserve the statement's row order.\n" +
			"- If the statement spans multiple pages, include every page's transactions.\n" +
			"- Never leave \"category\" empty; use \"Uncategorized\" when unsure.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return basePrompt + rulesPrompt
}
