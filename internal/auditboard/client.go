package auditboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultTimeoutSecondsConstant    = 30
	defaultMaxRetriesConstant        = 3
	defaultRetryDelaySecondsConstant = 2.0
	authorizationHeaderConstant      = "Authorization"
	bearerTokenTemplateConstant      = "Bearer %s"
	contentTypeHeaderConstant        = "Content-Type"
	jsonContentTypeConstant          = "application/json"
	endpointJoinTemplateConstant     = "%s/%s"
	perIDEndpointTemplateConstant    = "%s/%d"
	errorBodyLimitBytesConstant      = 512
)

var jsonCodec = jsoniter.ConfigFastest

// Configuration describes the AuditBoard connection settings.
type Configuration struct {
	BaseURL    string  `mapstructure:"base_url"`
	APIToken   string  `mapstructure:"api_token"`
	Timeout    int     `mapstructure:"timeout"`
	MaxRetries int     `mapstructure:"max_retries"`
	RetryDelay float64 `mapstructure:"retry_delay"`
}

// DefaultConfigurationValues returns the loader defaults for the auditboard section.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + ".timeout":     defaultTimeoutSecondsConstant,
		configurationKeyPrefix + ".max_retries": defaultMaxRetriesConstant,
		configurationKeyPrefix + ".retry_delay": defaultRetryDelaySecondsConstant,
	}
}

// HTTPDoer is the minimal transport interface required from http.Client.
type HTTPDoer interface {
	Do(request *http.Request) (*http.Response, error)
}

// Client issues authenticated requests against one AuditBoard instance.
type Client struct {
	baseURL       string
	apiToken      string
	httpTransport HTTPDoer
	maxRetries    int
	retryDelay    time.Duration
	sleep         func(sleepContext context.Context, duration time.Duration) error
}

// NewClient validates the configuration and constructs a client. Validation
// failures surface before any network activity.
func NewClient(configuration Configuration) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLRequired
	}
	if len(strings.TrimSpace(configuration.APIToken)) == 0 {
		return nil, ErrAPITokenRequired
	}

	timeoutSeconds := configuration.Timeout
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSecondsConstant
	}
	maxRetries := configuration.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetriesConstant
	}
	retryDelaySeconds := configuration.RetryDelay
	if retryDelaySeconds <= 0 {
		retryDelaySeconds = defaultRetryDelaySecondsConstant
	}

	client := &Client{
		baseURL:       trimmedBaseURL,
		apiToken:      configuration.APIToken,
		httpTransport: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		maxRetries:    maxRetries,
		retryDelay:    time.Duration(retryDelaySeconds * float64(time.Second)),
		sleep:         sleepWithContext,
	}

	return client, nil
}

func sleepWithContext(sleepContext context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-sleepContext.Done():
		return sleepContext.Err()
	case <-timer.C:
		return nil
	}
}

// Get issues a GET request and decodes the JSON response body.
func (client *Client) Get(requestContext context.Context, endpoint string, queryParameters url.Values) (map[string]any, error) {
	outcome, requestError := client.execute(requestContext, http.MethodGet, endpoint, queryParameters, nil)
	if requestError != nil {
		return nil, requestError
	}
	return decodeObject(endpoint, outcome.body)
}

// Post issues a POST request with a JSON body and decodes the JSON response.
func (client *Client) Post(requestContext context.Context, endpoint string, payload any) (map[string]any, error) {
	encodedPayload, encodeError := jsonCodec.Marshal(payload)
	if encodeError != nil {
		return nil, encodeError
	}

	outcome, requestError := client.execute(requestContext, http.MethodPost, endpoint, nil, encodedPayload)
	if requestError != nil {
		return nil, requestError
	}
	return decodeObject(endpoint, outcome.body)
}

// Delete issues a DELETE request. Only 200 and 204 count as success; any
// other non-retryable status surfaces as a StatusError.
func (client *Client) Delete(requestContext context.Context, endpoint string) error {
	outcome, requestError := client.execute(requestContext, http.MethodDelete, endpoint, nil, nil)
	if requestError != nil {
		return requestError
	}
	if outcome.statusCode != http.StatusOK && outcome.statusCode != http.StatusNoContent {
		return &StatusError{Method: http.MethodDelete, Endpoint: endpoint, StatusCode: outcome.statusCode, Body: truncateErrorBody(outcome.body)}
	}
	return nil
}

// List fetches the entire collection for a resource kind and unwraps the
// array found under its collection key.
func (client *Client) List(requestContext context.Context, kind ResourceKind) ([]Record, error) {
	responseObject, requestError := client.Get(requestContext, kind.EndpointPath(), nil)
	if requestError != nil {
		return nil, requestError
	}

	rawCollection, exists := responseObject[kind.CollectionKey()]
	if !exists {
		return []Record{}, nil
	}

	rawItems, isArray := rawCollection.([]any)
	if !isArray {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(rawItems))
	for _, rawItem := range rawItems {
		if itemObject, isObject := rawItem.(map[string]any); isObject {
			records = append(records, Record(itemObject))
		}
	}
	return records, nil
}

// Find fetches one record by id. The boolean distinguishes a confirmed
// absence (404) from a transport or server failure, which is returned as the
// error instead of being collapsed into "not found".
func (client *Client) Find(requestContext context.Context, kind ResourceKind, recordID int64) (Record, bool, error) {
	endpoint := fmt.Sprintf(perIDEndpointTemplateConstant, kind.EndpointPath(), recordID)
	responseObject, requestError := client.Get(requestContext, endpoint, nil)
	if requestError != nil {
		if IsNotFound(requestError) {
			return nil, false, nil
		}
		return nil, false, requestError
	}

	rawCollection, exists := responseObject[kind.CollectionKey()]
	if !exists {
		return nil, false, nil
	}
	rawItems, isArray := rawCollection.([]any)
	if !isArray || len(rawItems) == 0 {
		return nil, false, nil
	}
	itemObject, isObject := rawItems[0].(map[string]any)
	if !isObject {
		return nil, false, nil
	}
	return Record(itemObject), true, nil
}

// DeleteRecord issues the per-id DELETE for a resource kind.
func (client *Client) DeleteRecord(requestContext context.Context, kind ResourceKind, recordID int64) error {
	endpoint := fmt.Sprintf(perIDEndpointTemplateConstant, kind.EndpointPath(), recordID)
	return client.Delete(requestContext, endpoint)
}

type httpOutcome struct {
	statusCode int
	body       []byte
}

// execute performs one request with the retry policy: 5xx responses and
// transport failures retry up to maxRetries with linearly increasing backoff
// (retryDelay * (attempt+1)); 4xx responses surface immediately.
func (client *Client) execute(requestContext context.Context, method string, endpoint string, queryParameters url.Values, payload []byte) (httpOutcome, error) {
	requestURL := fmt.Sprintf(endpointJoinTemplateConstant, client.baseURL, strings.TrimLeft(endpoint, "/"))
	if len(queryParameters) > 0 {
		requestURL = requestURL + "?" + queryParameters.Encode()
	}

	var lastFailure error

	for attempt := 0; ; attempt++ {
		request, buildError := http.NewRequestWithContext(requestContext, method, requestURL, requestBody(payload))
		if buildError != nil {
			return httpOutcome{}, buildError
		}
		request.Header.Set(authorizationHeaderConstant, fmt.Sprintf(bearerTokenTemplateConstant, client.apiToken))
		request.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)

		response, transportError := client.httpTransport.Do(request)
		if transportError != nil {
			lastFailure = transportError
			if attempt < client.maxRetries {
				if sleepError := client.sleep(requestContext, client.retryDelay*time.Duration(attempt+1)); sleepError != nil {
					return httpOutcome{}, sleepError
				}
				continue
			}
			return httpOutcome{}, &RequestError{Method: method, Endpoint: endpoint, RetryCount: client.maxRetries, Cause: lastFailure}
		}

		responseBody, readError := io.ReadAll(response.Body)
		closeError := response.Body.Close()
		if readError != nil {
			return httpOutcome{}, readError
		}
		if closeError != nil {
			return httpOutcome{}, closeError
		}

		if response.StatusCode >= http.StatusInternalServerError {
			lastFailure = &StatusError{Method: method, Endpoint: endpoint, StatusCode: response.StatusCode, Body: truncateErrorBody(responseBody)}
			if attempt < client.maxRetries {
				if sleepError := client.sleep(requestContext, client.retryDelay*time.Duration(attempt+1)); sleepError != nil {
					return httpOutcome{}, sleepError
				}
				continue
			}
			return httpOutcome{}, lastFailure
		}

		if response.StatusCode >= http.StatusBadRequest {
			return httpOutcome{}, &StatusError{Method: method, Endpoint: endpoint, StatusCode: response.StatusCode, Body: truncateErrorBody(responseBody)}
		}

		return httpOutcome{statusCode: response.StatusCode, body: responseBody}, nil
	}
}

func requestBody(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}

func decodeObject(endpoint string, responseBody []byte) (map[string]any, error) {
	if len(responseBody) == 0 {
		return map[string]any{}, nil
	}

	decodedObject := map[string]any{}
	if decodeError := jsonCodec.Unmarshal(responseBody, &decodedObject); decodeError != nil {
		return nil, fmt.Errorf(responseDecodingErrorTemplateConstant, endpoint, decodeError)
	}
	return decodedObject, nil
}

func truncateErrorBody(responseBody []byte) string {
	trimmedBody := strings.TrimSpace(string(responseBody))
	if len(trimmedBody) > errorBodyLimitBytesConstant {
		return trimmedBody[:errorBodyLimitBytesConstant]
	}
	return trimmedBody
}
