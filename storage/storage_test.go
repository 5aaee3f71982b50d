package storage

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"coaching-api/domain"
)

func TestPartitionFilterEscapesQuotes(t *testing.T) {
	if got := partitionFilter("o'brien"); got != "PartitionKey eq 'o''brien'" {
		t.Fatalf("unexpected filter: %s", got)
	}
}

func TestDecodeBoardEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"room-1","RowKey":"todo","odata.etag":"W/\"1\"","Title":"To do","Order":2,"ShapeIDs":"[\"a\",\"b\"]"}`)
	b, err := decodeBoard(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Board{ID: "todo", RoomID: "room-1", Title: "To do", Order: 2, ShapeIDs: []string{"a", "b"}, ETag: `W/"1"`}
	if !reflect.DeepEqual(b, want) {
		t.Fatalf("unexpected board: %#v", b)
	}
}

func TestEncodeBoardRoundTripsShapeIDs(t *testing.T) {
	payload, err := encodeBoard(domain.Board{ID: "todo", RoomID: "room-1", Title: "To do", ETag: "ignored"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(payload), "odata.etag") {
		t.Fatalf("etag must not be written: %s", payload)
	}
	b, err := decodeBoard(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ShapeIDs == nil || len(b.ShapeIDs) != 0 {
		t.Fatalf("expected empty shape ids, got %#v", b.ShapeIDs)
	}
}

func TestJoinTask(t *testing.T) {
	lists := map[string]domain.TaskList{"l1": {ID: "l1", Title: "List", Order: 1}}
	sections := map[string]domain.TaskSection{"s1": {ID: "s1", Title: "Section", Order: 2}}

	tk, err := joinTask(taskEntity{Entity: key(partitionTasks, "t1"), ListID: "l1", SectionID: "s1", Type: "video"}, lists, sections)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if tk.List.ID != "l1" || !tk.Section.Valid || tk.Section.Section.ID != "s1" || tk.Type != domain.TaskTypeVideo {
		t.Fatalf("unexpected task: %#v", tk)
	}

	tk, err = joinTask(taskEntity{Entity: key(partitionTasks, "t2"), ListID: "l1", SectionID: "missing"}, lists, sections)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if tk.Section.Valid {
		t.Fatalf("expected unknown section to degrade to unsectioned: %#v", tk.Section)
	}

	if _, err := joinTask(taskEntity{Entity: key(partitionTasks, "t3"), ListID: "nope"}, lists, sections); err == nil {
		t.Fatal("expected unknown list error")
	}
}

func TestResponseRowKeyIsPerPair(t *testing.T) {
	if responseRowKey("q1", "p1") == responseRowKey("q1", "p2") {
		t.Fatal("row keys must differ per participant")
	}
	if responseRowKey("q1", "p1") != responseRowKey("q1", "p1") {
		t.Fatal("row key must be deterministic")
	}
}

func TestAttachmentEntityEncodesInt64AsString(t *testing.T) {
	payload, err := json.Marshal(attachmentEntity{Entity: key("o1", "a1"), Size: 1 << 40, SizeType: edmInt64})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"Size":"1099511627776"`) || !strings.Contains(string(payload), `"Size@odata.type":"Edm.Int64"`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestConflictOr(t *testing.T) {
	if err := conflictOr(&azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict for 412, got %v", err)
	}
	if err := conflictOr(&azcore.ResponseError{StatusCode: http.StatusConflict}); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict for 409, got %v", err)
	}
	other := &azcore.ResponseError{StatusCode: http.StatusInternalServerError}
	if err := conflictOr(other); err != other {
		t.Fatalf("expected error passthrough, got %v", err)
	}
}
