package progress

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEventName is the socket.io event sweep progress is emitted as.
const DefaultEventName = "sweep_progress"

// SocketIOOptions configures DialSocketIO.
type SocketIOOptions struct {
	// EventName defaults to DefaultEventName.
	EventName          string
	InsecureSkipVerify bool
	// ConnectTimeout defaults to 15s.
	ConnectTimeout time.Duration
}

// SocketIOReporter emits every event to a socket.io server. Delivery is
// fire-and-forget; a dashboard going away never affects the sweep.
type SocketIOReporter struct {
	io        *socket.Socket
	eventName string
}

// DialSocketIO connects to rawURL (scheme, host, and the socket.io path) and
// waits for the connection to be established. The URL fragment, if any,
// selects the namespace.
func DialSocketIO(ctx context.Context, rawURL string, o SocketIOOptions) (*SocketIOReporter, error) {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("progress URL %q must include scheme and host", rawURL)
	}
	if o.EventName == "" {
		o.EventName = DefaultEventName
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	namespace := "/" + parsedURL.Fragment

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Progress dashboard connected.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	logger.Debug("Connecting to progress dashboard...")
	io.Connect()

	timer := time.NewTimer(o.ConnectTimeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOReporter{io: io, eventName: o.EventName}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.ConnectTimeout)
	}
}

// Report implements Reporter.
func (r *SocketIOReporter) Report(ctx context.Context, ev Event) {
	payload, err := payloadOf(Stamped(ev))
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Could not encode progress event.", "kind", string(ev.Kind), "error", err)
		return
	}
	r.io.Emit(r.eventName, payload)
}

// Close disconnects from the dashboard.
func (r *SocketIOReporter) Close() error {
	r.io.Disconnect()
	return nil
}

// payloadOf renders ev as the JSON object the dashboard receives.
func payloadOf(ev Event) (map[string]any, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
