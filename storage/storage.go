package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// Tables names every table the service reads and writes.
type Tables struct {
	Curriculum    string
	Completions   string
	Organizations string
	Participants  string
	Hypotheses    string
	Questions     string
	Responses     string
	Attachments   string
	Boards        string
}

// Names returns the configured table names in a stable order.
func (t Tables) Names() []string {
	return []string{t.Curriculum, t.Completions, t.Organizations, t.Participants, t.Hypotheses, t.Questions, t.Responses, t.Attachments, t.Boards}
}

// Validate reports the first missing table name.
func (t Tables) Validate() error {
	for _, n := range t.Names() {
		if n == "" {
			return errors.New("missing table name")
		}
	}
	return nil
}

// Store provides access to the Azure Table relational model and the activity queue.
type Store struct {
	curriculum    *aztables.Client
	completions   *aztables.Client
	organizations *aztables.Client
	participants  *aztables.Client
	hypotheses    *aztables.Client
	questions     *aztables.Client
	responses     *aztables.Client
	attachments   *aztables.Client
	boards        *aztables.Client
	activityQueue messageQueue
}

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Store from the given connection string.
func New(connStr string, tables Tables, activityQueue string) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	var aq messageQueue
	if activityQueue != "" {
		qc, err := azqueue.NewQueueClientFromConnectionString(connStr, activityQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		aq = qc
	}
	return &Store{
		curriculum:    svc.NewClient(tables.Curriculum),
		completions:   svc.NewClient(tables.Completions),
		organizations: svc.NewClient(tables.Organizations),
		participants:  svc.NewClient(tables.Participants),
		hypotheses:    svc.NewClient(tables.Hypotheses),
		questions:     svc.NewClient(tables.Questions),
		responses:     svc.NewClient(tables.Responses),
		attachments:   svc.NewClient(tables.Attachments),
		boards:        svc.NewClient(tables.Boards),
		activityQueue: aq,
	}, nil
}

// partitionFilter builds an OData filter for a single partition.
func partitionFilter(pk string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(pk, "'", "''") + "'"
}

// listPartition walks every page of a partition and hands each raw entity to fn.
func listPartition(ctx context.Context, client *aztables.Client, pk string, fn func([]byte) error) error {
	filter := partitionFilter(pk)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entities {
			if err := fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// getEntity returns (nil, "", nil) when the row does not exist.
func getEntity(ctx context.Context, client *aztables.Client, pk, rk string) ([]byte, string, error) {
	ent, err := client.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return ent.Value, string(ent.ETag), nil
}

func upsertEntity(ctx context.Context, client *aztables.Client, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func mergeEntity(ctx context.Context, client *aztables.Client, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	return err
}

// deleteEntity ignores rows that are already gone.
func deleteEntity(ctx context.Context, client *aztables.Client, pk, rk string) error {
	_, err := client.DeleteEntity(ctx, pk, rk, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return err
	}
	return nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

// IsNotFound reports whether err is a storage 404.
func IsNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}
