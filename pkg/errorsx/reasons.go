package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonLLMGenerate  ReasonCode = "llm_generate"
	ReasonLLMRateLimit ReasonCode = "llm_rate_limit"
	ReasonExtractParse ReasonCode = "extract_parse"

	ReasonCatalogFetch ReasonCode = "catalog_fetch"
	ReasonOrderCommit  ReasonCode = "order_commit"

	ReasonChatSend      ReasonCode = "chat_send"
	ReasonMediaDownload ReasonCode = "media_download"

	ReasonWebhookInvalidSignature ReasonCode = "webhook_invalid_signature"
	ReasonWebhookMalformed        ReasonCode = "webhook_malformed"
)
