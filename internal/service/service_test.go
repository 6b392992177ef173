package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguru-go/internal/lexicon"
	"propguru-go/internal/model"
	"propguru-go/internal/pipeline"
	"propguru-go/internal/repository"
	"propguru-go/pkg/tasks"
)

func TestConversationService_HistoryAndInterests(t *testing.T) {
	repo := newTestConversationRepo(t)
	svc := NewConversationService(repo, lexicon.Default())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.AppendTurns(ctx, "room_1", []model.ChatTurn{
		{Role: model.RoleUser, Content: "คอนโด สุขุมวิท งบ 3 ล้าน", Timestamp: now},
		{Role: model.RoleAssistant, Content: "condo pool townhome", Timestamp: now},
		{Role: model.RoleUser, Content: "townhome with a pool in Bang Na", Timestamp: now},
		{Role: model.RoleAssistant, Content: "ok", Timestamp: now},
	}))

	history, err := svc.GetHistory(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, "room_1", history.Room.ID)
	require.Len(t, history.Turns, 4)
	assert.Equal(t, "ok", history.Turns[3].Content)

	interests, err := svc.GetInterests(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, 2, interests.QueryCount)
	assert.Equal(t, []string{"Sukhumvit", "Bang Na"}, interests.Interests[lexicon.InterestLocation])
	assert.Equal(t, []string{"condo", "townhome"}, interests.Interests[lexicon.InterestPropertyType])
	assert.Equal(t, []string{"pool"}, interests.Interests[lexicon.InterestFeatures])
}

func TestConversationService_UnknownRoom(t *testing.T) {
	svc := NewConversationService(newTestConversationRepo(t), lexicon.Default())

	_, err := svc.GetHistory(context.Background(), "room_missing")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
	_, err = svc.GetInterests(context.Background(), "room_missing")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

type memStore struct {
	objects map[string][]byte
	putErr  error
}

func (s *memStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[name] = b
	return nil
}

func (s *memStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.objects[name]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) PresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "http://minio.local/" + name, nil
}

type memUploadRepo struct {
	records map[string]*model.CatalogUpload
}

func (r *memUploadRepo) Create(_ context.Context, u *model.CatalogUpload) error {
	cp := *u
	r.records[u.ID] = &cp
	return nil
}

func (r *memUploadRepo) Get(_ context.Context, id string) (*model.CatalogUpload, error) {
	u, ok := r.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *u
	return &cp, nil
}

func (r *memUploadRepo) List(context.Context) ([]model.CatalogUpload, error) {
	out := make([]model.CatalogUpload, 0, len(r.records))
	for _, u := range r.records {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUploadRepo) MarkIngested(_ context.Context, id string, n int) error {
	r.records[id].Status = model.UploadStatusIngested
	r.records[id].RecordCount = n
	return nil
}

func (r *memUploadRepo) MarkFailed(_ context.Context, id string, reason string) error {
	r.records[id].Status = model.UploadStatusFailed
	r.records[id].ErrorMessage = reason
	return nil
}

func (r *memUploadRepo) IncrIngestAttempts(context.Context, string) (int64, error) { return 1, nil }
func (r *memUploadRepo) ClearIngestAttempts(context.Context, string) error         { return nil }

const validCSV = "ประเภท,โครงการ,ราคา,รูปแบบ,รูป,ตำแหน่ง,สถานศึกษา,สถานีรถไฟฟ้า,ห้างสรรพสินค้า,โรงพยาบาล,สนามบิน\n" +
	"คอนโด,The Base,\"3,500,000\",ขาย,ไม่มี,Sukhumvit,ไม่มี,BTS On Nut,ไม่มี,ไม่มี,ไม่มี\n"

func TestUploadService_StoresAndEnqueues(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}
	uploads := &memUploadRepo{records: map[string]*model.CatalogUpload{}}
	var produced []tasks.CatalogIngestTask
	svc := NewUploadService(store, uploads, func(_ context.Context, task tasks.CatalogIngestTask) error {
		produced = append(produced, task)
		return nil
	}, 1<<20)

	record, err := svc.Upload(context.Background(), "listings.csv", []byte(validCSV))
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusPending, record.Status)
	assert.Equal(t, "catalogs/"+record.ID+"/listings.csv", record.ObjectName)
	assert.Equal(t, []byte(validCSV), store.objects[record.ObjectName])

	require.Len(t, produced, 1)
	assert.Equal(t, tasks.CatalogIngestTask{UploadID: record.ID, ObjectName: record.ObjectName, FileName: "listings.csv"}, produced[0])

	dto, err := svc.GetUpload(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://minio.local/"+record.ObjectName, dto.DownloadURL)
	assert.Equal(t, record.ID, dto.ID)
}

func TestUploadService_RejectsBadFiles(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}
	uploads := &memUploadRepo{records: map[string]*model.CatalogUpload{}}
	produce := func(context.Context, tasks.CatalogIngestTask) error {
		t.Fatal("no task should be produced")
		return nil
	}
	svc := NewUploadService(store, uploads, produce, 64)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "listings.pdf", []byte("x"))
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedFormat)

	_, err = svc.Upload(ctx, "listings.csv", []byte(validCSV))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Upload(ctx, "listings.csv", []byte("type,project\ncondo,A\n"))
	assert.True(t, pipeline.IsFormatError(err))

	assert.Empty(t, store.objects)
	assert.Empty(t, uploads.records)
}

func TestUploadService_ProduceFailureMarksUploadFailed(t *testing.T) {
	uploads := &memUploadRepo{records: map[string]*model.CatalogUpload{}}
	svc := NewUploadService(&memStore{objects: map[string][]byte{}}, uploads, func(context.Context, tasks.CatalogIngestTask) error {
		return errors.New("kafka down")
	}, 0)

	_, err := svc.Upload(context.Background(), "listings.csv", []byte(validCSV))
	require.Error(t, err)
	require.Len(t, uploads.records, 1)
	for _, u := range uploads.records {
		assert.Equal(t, model.UploadStatusFailed, u.Status)
		assert.Contains(t, u.ErrorMessage, "kafka down")
	}
}

func newFakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]interface{})) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			_, _ = io.WriteString(w, `{"version":{"number":"8.19.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		handler(w, r, body)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestSearchService_SearchListings(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
		gotPath = r.URL.Path
		gotBody = body
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[
			{"_score":4.2,"_source":{"listing_id":7,"upload_id":"u1","property_type":"คอนโด","location":"Sukhumvit","nearby":["BTS On Nut"]}}
		]}}`)
	})
	svc := NewSearchService(client, "property_listings")

	hits, err := svc.SearchListings(context.Background(), " คอนโด สุขุมวิท ", "คอนโด", 500)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(7), hits[0].Listing.ListingID)
	assert.Equal(t, []string{"BTS On Nut"}, hits[0].Listing.Nearby)
	assert.InDelta(t, 4.2, hits[0].Score, 1e-9)

	assert.Equal(t, "/property_listings/_search", gotPath)
	assert.EqualValues(t, maxSearchSize, gotBody["size"])
	boolQuery := gotBody["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, boolQuery, "filter")
}

func TestSearchService_ErrorStatus(t *testing.T) {
	client := newFakeES(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]interface{}) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})
	svc := NewSearchService(client, "property_listings")

	_, err := svc.SearchListings(context.Background(), "condo", "", 0)
	assert.Error(t, err)
}
