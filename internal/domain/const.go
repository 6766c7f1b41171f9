package domain

const (
	RequesterIdCtxKey = "bib-requesterId"
)

const (
	AcceptChunkline      = "application/chunkline+json"
	AcceptSignedDocument = "application/biblion.signed-document+json"
	ContentTypeEvent     = "application/biblion.event+json"
)

const (
	EventChannel       = "biblion:events"
	TokenChannelPrefix = "biblion:token:"
)
