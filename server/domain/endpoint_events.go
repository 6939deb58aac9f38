package domain

type endpointEventKind uint8

const (
	evUnknown endpointEventKind = iota
	evPong                      // pong を受信した
	evClose                     // セッション終了（切断、I/Oエラー、アイドル）
)

type endpointEvent struct {
	kind endpointEventKind
	err  error
}
