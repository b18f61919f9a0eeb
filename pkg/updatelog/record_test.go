package updatelog

import (
	"reflect"
	"testing"
)

func TestRecordRoundtrip(t *testing.T) {
	cases := []Record{
		{Kind: KindUpvote, Upvote: &UpvotePayload{ChunkIDs: []string{"c1", "c2"}, Queries: []string{"q1"}}},
		{Kind: KindImplicitUpvote, ImplicitUpvote: &UpvotePayload{ChunkIDs: []string{"c3"}, Queries: []string{"q2"}}},
		{Kind: KindAssociate, Associate: &AssociatePayload{Sources: []string{"s1"}, Targets: []string{"t1", "t2"}}},
		{Kind: KindInsert, Insert: &InsertPayload{Files: []FileRef{{Path: "/data/a.txt", SourceType: "local", ContentType: "text/plain"}}}},
		{Kind: KindDelete, Delete: &DeletePayload{DocIDs: []string{"d1", "d2"}}},
	}

	for _, rec := range cases {
		t.Run(string(rec.Kind), func(t *testing.T) {
			line, err := rec.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON: %v", err)
			}
			got, err := Decode(line)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, rec) {
				t.Errorf("Decode(MarshalJSON(rec)) = %+v, want %+v", got, rec)
			}
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"reindex"}`))
	if err == nil {
		t.Fatal("Decode with unknown kind: want error, got nil")
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	if err == nil {
		t.Fatal("Decode of malformed JSON: want error, got nil")
	}
}

func TestMarshalUnknownKind(t *testing.T) {
	_, err := Record{Kind: "bogus"}.MarshalJSON()
	if err == nil {
		t.Fatal("MarshalJSON of unknown kind: want error, got nil")
	}
}
