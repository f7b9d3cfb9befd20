// Package flagship is the SDK consumer's entry point: construct a Client
// from an SDK key, a local datafile, or a literal datafile string, then
// create a UserContext per request and call Decide.
//
// # Examples
//
// Creating a client from an SDK key:
//
//	client, err := flagship.FromSDKKey("<sdk-key>")
//	if err != nil {
//		log.Fatal(err)
//	}
//	c := client.Initialize()
//	defer c.Close()
//
// Creating a client with a batched event dispatcher and a custom poll
// interval:
//
//	builder, err := flagship.FromSDKKey("<sdk-key>")
//	if err != nil {
//		log.Fatal(err)
//	}
//	c := builder.
//		WithUpdateInterval(30 * time.Second).
//		WithEventDispatcher(eventapi.NewBatchedDispatcher("<account-id>", "")).
//		Initialize()
//	defer c.Close()
package flagship

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goflagship/flagship-sdk-go/internal/config"
	"github.com/goflagship/flagship-sdk-go/internal/datafile"
	"github.com/goflagship/flagship-sdk-go/internal/decision"
	"github.com/goflagship/flagship-sdk-go/internal/eventapi"
)

// UninitializedClient accumulates optional construction settings before
// Initialize builds the Client. Obtained from FromSDKKey, FromLocalDatafile
// or FromString.
type UninitializedClient struct {
	sdkKey               string
	datafile             *datafile.Datafile
	updateInterval       time.Duration
	dispatcher           eventapi.Dispatcher
	defaultDecideOptions decision.Options
	eventAPIEndpoint     string
}

// FromSDKKey downloads the datafile from the CDN using an SDK key. The
// fetch happens synchronously here, so a misconfigured key or an
// unreachable CDN is reported immediately rather than surfacing later from
// a background goroutine.
func FromSDKKey(sdkKey string) (*UninitializedClient, error) {
	df, err := config.FetchDatafile(context.Background(), sdkKey)
	if err != nil {
		return nil, fmt.Errorf("flagship: %w", err)
	}
	return &UninitializedClient{sdkKey: sdkKey, datafile: df}, nil
}

// FromLocalDatafile reads the datafile from the local filesystem. No SDK
// key means Initialize will not start background polling.
func FromLocalDatafile(path string) (*UninitializedClient, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flagship: failed to read datafile %q: %w", path, err)
	}
	return FromString(string(content))
}

// FromString parses content as a literal datafile JSON document.
func FromString(content string) (*UninitializedClient, error) {
	df, err := datafile.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("flagship: %w", err)
	}
	return &UninitializedClient{datafile: df}, nil
}

// WithUpdateInterval sets how often the client polls the CDN for a new
// datafile revision. Has no effect when the client wasn't built from an SDK
// key (there is nothing to poll).
func (u *UninitializedClient) WithUpdateInterval(interval time.Duration) *UninitializedClient {
	u.updateInterval = interval
	return u
}

// WithEventDispatcher overrides the default batched dispatcher.
func (u *UninitializedClient) WithEventDispatcher(dispatcher eventapi.Dispatcher) *UninitializedClient {
	u.dispatcher = dispatcher
	return u
}

// WithDefaultDecideOptions sets the Options applied to every Decide call
// that doesn't specify its own.
func (u *UninitializedClient) WithDefaultDecideOptions(opts decision.Options) *UninitializedClient {
	u.defaultDecideOptions = opts
	return u
}

// WithEventAPIEndpoint overrides the default Event API URL the built-in
// batched dispatcher posts to. Has no effect when WithEventDispatcher is
// also used.
func (u *UninitializedClient) WithEventAPIEndpoint(endpoint string) *UninitializedClient {
	u.eventAPIEndpoint = endpoint
	return u
}

// Initialize completes construction and returns a ready-to-use Client.
func (u *UninitializedClient) Initialize() *Client {
	manager := config.NewManager(u.sdkKey, u.updateInterval)
	manager.Seed(u.datafile)
	if u.sdkKey != "" {
		manager.StartPolling()
	}

	dispatcher := u.dispatcher
	if dispatcher == nil {
		dispatcher = eventapi.NewBatchedDispatcher(u.datafile.AccountID, u.eventAPIEndpoint)
	}

	return &Client{
		manager:        manager,
		dispatcher:     dispatcher,
		defaultOptions: u.defaultDecideOptions,
	}
}

// Client is the SDK's main entry point: it holds the current datafile
// snapshot and the event dispatcher, and hands out UserContexts bound to
// both.
type Client struct {
	manager        *config.Manager
	dispatcher     eventapi.Dispatcher
	defaultOptions decision.Options
}

// CreateUserContext starts a decision session for userID. The returned
// UserContext reads through to the client's live datafile snapshot, so
// decisions it makes always see the latest configuration.
func (c *Client) CreateUserContext(userID string) *UserContext {
	return &UserContext{
		client: c,
		userID: userID,
		attrs:  make(map[string]datafile.UserAttribute),
	}
}

// Close stops the background datafile poller, then closes the dispatcher
// (flushing any buffered events). The dispatcher is closed even when it was
// supplied via WithEventDispatcher, so a dispatcher shared between clients
// is closed by the first client's Close.
func (c *Client) Close() error {
	if err := c.manager.Close(); err != nil {
		return err
	}
	return c.dispatcher.Close()
}
