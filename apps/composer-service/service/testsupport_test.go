package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"crosspost/apps/composer-service/dao"
	"crosspost/apps/composer-service/model"
	"crosspost/pkg/logger"
	"crosspost/pkg/storage"
)

// memDAO 内存版DAO,测试专用
type memDAO struct {
	mu          sync.Mutex
	drafts      map[int64]*model.PostDraft
	media       map[int64]map[int64]*model.MediaItem // draftID -> itemID -> item
	options     map[string]*model.ShortVideoOptions  // draftID:platform:accountID
	submissions map[int64]*model.SubmissionRecord
	dispatches  map[int64][]*model.DispatchRecord
}

func newMemDAO() *memDAO {
	return &memDAO{
		drafts:      make(map[int64]*model.PostDraft),
		media:       make(map[int64]map[int64]*model.MediaItem),
		options:     make(map[string]*model.ShortVideoOptions),
		submissions: make(map[int64]*model.SubmissionRecord),
		dispatches:  make(map[int64][]*model.DispatchRecord),
	}
}

func optionKey(draftID int64, platform, accountID string) string {
	return fmt.Sprintf("%d:%s:%s", draftID, platform, accountID)
}

func (m *memDAO) CreateDraft(ctx context.Context, draft *model.PostDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *draft
	m.drafts[draft.ID] = &copied
	return nil
}

func (m *memDAO) GetDraft(ctx context.Context, draftID int64) (*model.PostDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[draftID]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	copied := *draft
	return &copied, nil
}

func (m *memDAO) UpdateDraft(ctx context.Context, draft *model.PostDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[draft.ID]; !ok {
		return dao.ErrRecordNotFound
	}
	copied := *draft
	m.drafts[draft.ID] = &copied
	return nil
}

func (m *memDAO) DeleteDraft(ctx context.Context, draftID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, draftID)
	delete(m.media, draftID)
	return nil
}

func (m *memDAO) GetUserDrafts(ctx context.Context, userID int64, page, pageSize int32) ([]*model.PostDraft, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var drafts []*model.PostDraft
	for _, d := range m.drafts {
		if d.UserID == userID {
			copied := *d
			drafts = append(drafts, &copied)
		}
	}
	return drafts, int64(len(drafts)), nil
}

func (m *memDAO) CreateMediaItem(ctx context.Context, item *model.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media[item.DraftID] == nil {
		m.media[item.DraftID] = make(map[int64]*model.MediaItem)
	}
	copied := *item
	m.media[item.DraftID][item.ID] = &copied
	return nil
}

func (m *memDAO) GetMediaItem(ctx context.Context, draftID, itemID int64) (*model.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.media[draftID][itemID]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memDAO) GetMediaItems(ctx context.Context, draftID int64) ([]*model.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*model.MediaItem
	for _, item := range m.media[draftID] {
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })
	return items, nil
}

func (m *memDAO) UpdateMediaItem(ctx context.Context, item *model.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[item.DraftID][item.ID]; !ok {
		return dao.ErrRecordNotFound
	}
	copied := *item
	m.media[item.DraftID][item.ID] = &copied
	return nil
}

func (m *memDAO) DeleteMediaItem(ctx context.Context, draftID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[draftID][itemID]; !ok {
		return dao.ErrRecordNotFound
	}
	delete(m.media[draftID], itemID)
	return nil
}

func (m *memDAO) SaveMediaOrder(ctx context.Context, draftID int64, orderedIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range orderedIDs {
		if item, ok := m.media[draftID][id]; ok {
			item.SortOrder = i
		}
	}
	return nil
}

func (m *memDAO) GetOptionRecord(ctx context.Context, draftID int64, platform, accountID string) (*model.ShortVideoOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.options[optionKey(draftID, platform, accountID)]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *memDAO) UpsertOptionRecord(ctx context.Context, record *model.ShortVideoOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.options[optionKey(record.DraftID, record.Platform, record.AccountID)] = &copied
	return nil
}

func (m *memDAO) GetOptionRecords(ctx context.Context, draftID int64) ([]*model.ShortVideoOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []*model.ShortVideoOptions
	for _, r := range m.options {
		if r.DraftID == draftID {
			copied := *r
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (m *memDAO) CreateSubmission(ctx context.Context, record *model.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.submissions[record.ID] = &copied
	return nil
}

func (m *memDAO) UpdateSubmission(ctx context.Context, record *model.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.submissions[record.ID] = &copied
	return nil
}

func (m *memDAO) GetSubmission(ctx context.Context, submissionID int64) (*model.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.submissions[submissionID]
	if !ok {
		return nil, dao.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *memDAO) CreateDispatchRecord(ctx context.Context, record *model.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.dispatches[record.SubmissionID] = append(m.dispatches[record.SubmissionID], &copied)
	return nil
}

func (m *memDAO) GetDispatchRecords(ctx context.Context, submissionID int64) ([]*model.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.DispatchRecord(nil), m.dispatches[submissionID]...), nil
}

// memArchive 内存版归档DAO
type memArchive struct {
	mu       sync.Mutex
	archives map[int64]*model.DispatchArchive
}

func newMemArchive() *memArchive {
	return &memArchive{archives: make(map[int64]*model.DispatchArchive)}
}

func (m *memArchive) SaveArchive(ctx context.Context, archive *model.DispatchArchive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[archive.SubmissionID] = archive
	return nil
}

func (m *memArchive) GetArchive(ctx context.Context, submissionID int64) (*model.DispatchArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	archive, ok := m.archives[submissionID]
	if !ok {
		return nil, fmt.Errorf("归档不存在")
	}
	return archive, nil
}

// fakeCapabilities 固定返回预设能力
type fakeCapabilities struct {
	caps map[string]*model.AccountCapabilities // platform:accountID
}

func newFakeCapabilities() *fakeCapabilities {
	return &fakeCapabilities{caps: make(map[string]*model.AccountCapabilities)}
}

func (f *fakeCapabilities) set(platform, accountID string, caps *model.AccountCapabilities) {
	caps.Platform = platform
	caps.AccountID = accountID
	f.caps[platform+":"+accountID] = caps
}

func (f *fakeCapabilities) GetCapabilities(ctx context.Context, platform, accountID string) (*model.AccountCapabilities, error) {
	caps, ok := f.caps[platform+":"+accountID]
	if !ok {
		return &model.AccountCapabilities{Platform: platform, AccountID: accountID}, nil
	}
	return caps, nil
}

// fakeDispatcher 记录投递调用,可按(平台,账号)预设失败
type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []*model.PostSubmissionRequest
	failures map[string]error // platform:accountID
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{failures: make(map[string]error)}
}

func (f *fakeDispatcher) failOn(platform, accountID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[platform+":"+accountID] = err
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req *model.PostSubmissionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err, ok := f.failures[req.Platform+":"+req.AccountID]; ok {
		return err
	}
	return nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testEnv 一套完整的测试装置
type testEnv struct {
	svc        *Service
	dao        *memDAO
	archive    *memArchive
	caps       *fakeCapabilities
	dispatcher *fakeDispatcher
	store      storage.AssetStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost:21021/assets", logger.GetLogger())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}

	env := &testEnv{
		dao:        newMemDAO(),
		archive:    newMemArchive(),
		caps:       newFakeCapabilities(),
		dispatcher: newFakeDispatcher(),
		store:      store,
	}
	env.svc = NewService(env.dao, env.archive, nil, nil, store, env.caps, env.dispatcher, logger.GetLogger())
	return env
}

// mustCreateDraft 建一条测试草稿
func (e *testEnv) mustCreateDraft(t *testing.T, caption string, platforms []string) *model.PostDraft {
	t.Helper()
	draft, err := e.svc.CreateDraft(context.Background(), 1001, caption, platforms)
	if err != nil {
		t.Fatalf("创建草稿失败: %v", err)
	}
	return draft
}
