package docregistry

// Builtin returns the built-in per-document-type schema/prompt table,
// one entry per tag named in the task data model plus the "text" fallback.
// Field shapes and prompt wording are carried over from the per-docType
// metadata models this worker's predecessor used, re-expressed as flat
// field-kind descriptions rather than a class hierarchy.
func Builtin() map[string]Entry {
	return map[string]Entry{
		"code": {
			Schema: Schema{
				DocType: "code",
				Fields: []Field{
					{Name: "summary", Kind: KindString},
					{Name: "purpose", Kind: KindString},
					{Name: "complexity", Kind: KindString},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this code and extract metadata.

Provide:
- summary: A 1-2 sentence summary of what this code does
- purpose: The purpose of this code in the broader system
- complexity: Rate the complexity as "low", "medium", or "high"

Code:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"slack": {
			Schema: Schema{
				DocType: "slack",
				Fields: []Field{
					{Name: "summary", Kind: KindString},
					{Name: "decisions", Kind: KindArray},
					{Name: "action_items", Kind: KindArray},
					{Name: "sentiment", Kind: KindString},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this Slack conversation and extract metadata.

Provide:
- summary: A brief summary of the conversation
- decisions: List of decisions made in the conversation
- action_items: List of action items with task and assignee (if mentioned)
- sentiment: Overall sentiment of the conversation (positive, neutral, or negative)

Slack conversation:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"email": {
			Schema: Schema{
				DocType: "email",
				Fields: []Field{
					{Name: "urgency", Kind: KindString},
					{Name: "intent", Kind: KindString},
					{Name: "action_items", Kind: KindArray},
					{Name: "summary", Kind: KindString},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this email and extract metadata.

Provide:
- urgency: Urgency level (low, normal, high, or critical)
- intent: Main intent (request, fyi, approval, or escalation)
- action_items: List of action items mentioned with task and assignee if specified
- summary: A brief summary of the email

Email:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"meeting": {
			Schema: Schema{
				DocType: "meeting",
				Fields: []Field{
					{Name: "decisions", Kind: KindArray},
					{Name: "action_items", Kind: KindArray},
					{Name: "topic_segments", Kind: KindArray},
				},
				HasSummary: false,
			},
			PromptTemplate: `Analyze these meeting notes and extract metadata.

Provide:
- decisions: List of decisions made in the meeting
- action_items: List of action items with task, assignee, and deadline (if mentioned)
- topic_segments: List of topics discussed with a summary for each

Meeting notes:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"image": {
			Schema: Schema{
				DocType: "image",
				Fields: []Field{
					{Name: "description", Kind: KindString},
					{Name: "detected_objects", Kind: KindArray},
					{Name: "ocr_text", Kind: KindString},
					{Name: "image_type", Kind: KindString},
				},
				HasSummary: false,
			},
			PromptTemplate: `Describe this image in detail.

Provide:
- description: A detailed description of the image
- detected_objects: List of main objects/entities visible in the image
- ocr_text: Any readable text visible in the image
- image_type: Classification (photo, diagram, screenshot, or chart)

{context}

Respond with valid JSON matching this schema: {schema}`,
		},
		"pdf": {
			Schema: Schema{
				DocType: "pdf",
				Fields: []Field{
					{Name: "summary", Kind: KindString},
					{Name: "key_entities", Kind: KindArray},
					{Name: "sections", Kind: KindArray},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this PDF document and extract metadata.

Provide:
- summary: An overall summary of the document
- key_entities: List of key entities, names, or concepts mentioned
- sections: List of major sections with title and summary

PDF content:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"article": {
			Schema: Schema{
				DocType: "article",
				Fields: []Field{
					{Name: "summary", Kind: KindString},
					{Name: "takeaways", Kind: KindArray},
					{Name: "tags", Kind: KindArray},
					{Name: "target_audience", Kind: KindString},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this article and extract metadata.

Provide:
- summary: A summary of the article
- takeaways: List of key takeaways or main points
- tags: List of relevant tags or topics
- target_audience: Description of the intended audience

Article:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
		"text": {
			Schema: Schema{
				DocType: "text",
				Fields: []Field{
					{Name: "summary", Kind: KindString},
					{Name: "key_entities", Kind: KindArray},
				},
				HasSummary: true,
			},
			PromptTemplate: `Analyze this text and extract metadata.

Provide:
- summary: A concise summary of the text
- key_entities: List of key entities, names, or concepts mentioned

Text:
{text}

Respond with valid JSON matching this schema: {schema}`,
		},
	}
}
