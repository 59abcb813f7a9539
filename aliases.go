package eventstream

import (
	"github.com/devspaces/eventstream-go/api"
	"github.com/devspaces/eventstream-go/util"
)

type Event = api.Event
type ClientEvent = api.ClientEvent
type ClientEventType = api.ClientEventType
type ConnectionState = api.ConnectionState
type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

func SetLogger(log Logger) { util.SetLogger(log) }
