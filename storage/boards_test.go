package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"coaching-api/domain"
)

// batchTransport answers every $batch request with a 202 whose single
// changeset part carries innerStatus.
type batchTransport struct {
	innerStatus string
	innerBody   string
	requests    int
}

func (b *batchTransport) Do(req *http.Request) (*http.Response, error) {
	b.requests++
	body := "--batchresponse_1\r\n" +
		"Content-Type: multipart/mixed; boundary=changesetresponse_1\r\n\r\n" +
		"--changesetresponse_1\r\n" +
		"Content-Type: application/http\r\n" +
		"Content-Transfer-Encoding: binary\r\n\r\n" +
		"HTTP/1.1 " + b.innerStatus + "\r\n" +
		"Content-Type: application/json;odata=minimalmetadata;streaming=true;charset=utf-8\r\n\r\n" +
		b.innerBody + "\r\n" +
		"--changesetresponse_1--\r\n" +
		"--batchresponse_1--\r\n"
	return &http.Response{
		StatusCode: http.StatusAccepted,
		Status:     "202 Accepted",
		Header:     http.Header{"Content-Type": []string{"multipart/mixed; boundary=batchresponse_1"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func newBatchStore(t *testing.T, tr *batchTransport) *Store {
	t.Helper()
	client, err := aztables.NewClientWithNoCredential("https://account.table.core.windows.net/boards", &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: tr,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return &Store{boards: client}
}

func twoBoards() []domain.Board {
	return []domain.Board{
		{ID: "a", RoomID: "org:r1", Title: "A", Order: 0, ShapeIDs: []string{"s1"}, ETag: `W/"1"`},
		{ID: "b", RoomID: "org:r1", Title: "B", Order: 1, ShapeIDs: []string{"s2"}, ETag: `W/"2"`},
	}
}

func TestUpdateBoardsMapsFailedChangesetToConflict(t *testing.T) {
	cases := map[string]string{
		"stale etag":    "412 Precondition Failed",
		"board deleted": "404 Not Found",
		"conflict":      "409 Conflict",
	}
	for name, status := range cases {
		t.Run(name, func(t *testing.T) {
			tr := &batchTransport{
				innerStatus: status,
				innerBody:   `{"odata.error":{"code":"UpdateConditionNotSatisfied","message":{"lang":"en-US","value":"0:The update condition specified in the request was not satisfied."}}}`,
			}
			err := newBatchStore(t, tr).UpdateBoards(context.Background(), twoBoards())
			if !errors.Is(err, domain.ErrConcurrencyConflict) {
				t.Fatalf("expected concurrency conflict, got %v", err)
			}
			if tr.requests != 1 {
				t.Fatalf("expected one batch request, got %d", tr.requests)
			}
		})
	}
}

func TestUpdateBoardsKeepsOtherChangesetFailures(t *testing.T) {
	tr := &batchTransport{
		innerStatus: "400 Bad Request",
		innerBody:   `{"odata.error":{"code":"InvalidInput","message":{"lang":"en-US","value":"0:Bad value."}}}`,
	}
	err := newBatchStore(t, tr).UpdateBoards(context.Background(), twoBoards())
	if err == nil || errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected a non-conflict error, got %v", err)
	}
}

func TestUpdateBoardsSucceedsOnAcceptedBatch(t *testing.T) {
	tr := &batchTransport{innerStatus: "204 No Content"}
	if err := newBatchStore(t, tr).UpdateBoards(context.Background(), twoBoards()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBatchConflictOrPassesThroughNonBatchErrors(t *testing.T) {
	if err := batchConflictOr(&azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict for plain 412, got %v", err)
	}
	other := errors.New("network down")
	if err := batchConflictOr(other); err != other {
		t.Fatalf("expected passthrough, got %v", err)
	}
}
