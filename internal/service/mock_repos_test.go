package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"share-worker/backend/config"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	pkgerrors "share-worker/backend/pkg/errors"
	"share-worker/backend/pkg/jwt"
)

// ── memStore：带事务语义的内存存储 ──
// 事务持有全局锁直到提交，出错时恢复快照；事务外的单条操作各自加锁

type memStore struct {
	mu sync.Mutex

	facilities  map[uint64]model.Facility
	jobs        map[uint64]model.Job
	slots       map[uint64]model.WorkSlot
	apps        map[uint64]model.Application
	attendances map[uint64]model.Attendance
	mods        map[uint64]model.ModificationRequest
	revisions   []model.ModificationRequestRevision
	nextID      uint64
}

func newMemStore() *memStore {
	return &memStore{
		facilities:  make(map[uint64]model.Facility),
		jobs:        make(map[uint64]model.Job),
		slots:       make(map[uint64]model.WorkSlot),
		apps:        make(map[uint64]model.Application),
		attendances: make(map[uint64]model.Attendance),
		mods:        make(map[uint64]model.ModificationRequest),
	}
}

type memSnapshot struct {
	facilities  map[uint64]model.Facility
	jobs        map[uint64]model.Job
	slots       map[uint64]model.WorkSlot
	apps        map[uint64]model.Application
	attendances map[uint64]model.Attendance
	mods        map[uint64]model.ModificationRequest
	revisions   []model.ModificationRequestRevision
	nextID      uint64
}

func copyMap[V any](m map[uint64]V) map[uint64]V {
	out := make(map[uint64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		facilities:  copyMap(s.facilities),
		jobs:        copyMap(s.jobs),
		slots:       copyMap(s.slots),
		apps:        copyMap(s.apps),
		attendances: copyMap(s.attendances),
		mods:        copyMap(s.mods),
		revisions:   append([]model.ModificationRequestRevision(nil), s.revisions...),
		nextID:      s.nextID,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.facilities = snap.facilities
	s.jobs = snap.jobs
	s.slots = snap.slots
	s.apps = snap.apps
	s.attendances = snap.attendances
	s.mods = snap.mods
	s.revisions = snap.revisions
	s.nextID = snap.nextID
}

func (s *memStore) newID() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(s.repository(true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// repository 构造 Repository 聚合；事务内的视图不再加锁，嵌套事务直接复用
func (s *memStore) repository(inTx bool) *repository.Repository {
	v := memView{s: s, inTx: inTx}
	r := &repository.Repository{
		Facility:     &memFacilityRepo{v},
		Job:          &memJobRepo{v},
		WorkSlot:     &memWorkSlotRepo{v},
		Application:  &memApplicationRepo{v},
		Attendance:   &memAttendanceRepo{v},
		Modification: &memModificationRepo{v},
	}
	if !inTx {
		r.Tx = s
	}
	return r
}

type memView struct {
	s    *memStore
	inTx bool
}

func (v memView) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func stamp(base *model.BaseModel, id uint64) {
	now := time.Now()
	base.ID = id
	base.CreatedAt = now
	base.UpdatedAt = now
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return nil
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

// ── Mock FacilityRepository ──

type memFacilityRepo struct{ memView }

func (r *memFacilityRepo) Create(_ context.Context, f *model.Facility) error {
	defer r.lock()()
	stamp(&f.BaseModel, r.s.newID())
	r.s.facilities[f.ID] = *f
	return nil
}

func (r *memFacilityRepo) GetByID(_ context.Context, id uint64) (*model.Facility, error) {
	defer r.lock()()
	if f, ok := r.s.facilities[id]; ok {
		return &f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock JobRepository ──

type memJobRepo struct{ memView }

func (r *memJobRepo) Create(_ context.Context, job *model.Job) error {
	defer r.lock()()
	stamp(&job.BaseModel, r.s.newID())
	stored := *job
	stored.Slots, stored.Facility = nil, nil
	r.s.jobs[job.ID] = stored
	return nil
}

func (r *memJobRepo) GetByID(_ context.Context, id uint64) (*model.Job, error) {
	defer r.lock()()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, slot := range r.s.slots {
		if slot.JobID == id {
			job.Slots = append(job.Slots, slot)
		}
	}
	sort.Slice(job.Slots, func(i, j int) bool { return job.Slots[i].StartsAt.Before(job.Slots[j].StartsAt) })
	return &job, nil
}

// ── Mock WorkSlotRepository ──

type memWorkSlotRepo struct{ memView }

func (r *memWorkSlotRepo) BatchCreate(_ context.Context, slots []model.WorkSlot) error {
	defer r.lock()()
	for i := range slots {
		stamp(&slots[i].BaseModel, r.s.newID())
		stored := slots[i]
		stored.Job = nil
		r.s.slots[stored.ID] = stored
	}
	return nil
}

func (r *memWorkSlotRepo) get(id uint64) (*model.WorkSlot, error) {
	slot, ok := r.s.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if job, ok := r.s.jobs[slot.JobID]; ok {
		slot.Job = &job
	}
	return &slot, nil
}

func (r *memWorkSlotRepo) GetByID(_ context.Context, id uint64) (*model.WorkSlot, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *memWorkSlotRepo) GetForUpdate(_ context.Context, id uint64) (*model.WorkSlot, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *memWorkSlotRepo) List(_ context.Context, filter repository.WorkSlotFilter, page repository.Page) ([]model.WorkSlot, int64, error) {
	defer r.lock()()
	var result []model.WorkSlot
	for _, slot := range r.s.slots {
		if filter.FacilityID != 0 && slot.FacilityID != filter.FacilityID {
			continue
		}
		if filter.JobID != 0 && slot.JobID != filter.JobID {
			continue
		}
		if filter.From != nil && slot.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !slot.StartsAt.Before(*filter.To) {
			continue
		}
		if filter.VisibleAt != nil && (slot.IsRetired() || !slot.VisibleAt(*filter.VisibleAt)) {
			continue
		}
		result = append(result, slot)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].StartsAt.Before(result[j].StartsAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, page), int64(len(result)), nil
}

func (r *memWorkSlotRepo) AdjustCounters(_ context.Context, id uint64, appliedDelta, matchedDelta int) error {
	defer r.lock()()
	slot, ok := r.s.slots[id]
	if !ok {
		return pkgerrors.ErrCounterGuard
	}
	applied := slot.AppliedCount + appliedDelta
	matched := slot.MatchedCount + matchedDelta
	if applied < 0 || matched < 0 || matched > applied || matched > slot.RecruitmentCount {
		return pkgerrors.ErrCounterGuard
	}
	slot.AppliedCount, slot.MatchedCount = applied, matched
	r.s.slots[id] = slot
	return nil
}

func (r *memWorkSlotRepo) UpdateEmergencyCode(_ context.Context, id uint64, hash string) error {
	defer r.lock()()
	slot, ok := r.s.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	slot.EmergencyCodeHash = hash
	r.s.slots[id] = slot
	return nil
}

func (r *memWorkSlotRepo) Retire(_ context.Context, id uint64, at time.Time) error {
	defer r.lock()()
	slot, ok := r.s.slots[id]
	if ok && slot.RetiredAt == nil {
		slot.RetiredAt = &at
		r.s.slots[id] = slot
	}
	return nil
}

func (r *memWorkSlotRepo) RetireEndedBefore(_ context.Context, before time.Time) (int64, error) {
	defer r.lock()()
	var n int64
	for id, slot := range r.s.slots {
		if slot.RetiredAt == nil && slot.EndsAt.Before(before) {
			at := before
			slot.RetiredAt = &at
			r.s.slots[id] = slot
			n++
		}
	}
	return n, nil
}

// ── Mock ApplicationRepository ──

type memApplicationRepo struct{ memView }

func (r *memApplicationRepo) findLive(workerID, slotID uint64) *model.Application {
	for _, app := range r.s.apps {
		if app.WorkerID == workerID && app.WorkSlotID == slotID && !app.Status.IsCancelled() {
			return &app
		}
	}
	return nil
}

func (r *memApplicationRepo) Create(_ context.Context, app *model.Application) error {
	defer r.lock()()
	if r.findLive(app.WorkerID, app.WorkSlotID) != nil {
		return gorm.ErrDuplicatedKey
	}
	stamp(&app.BaseModel, r.s.newID())
	stored := *app
	stored.WorkSlot = nil
	r.s.apps[app.ID] = stored
	return nil
}

func (r *memApplicationRepo) GetByID(_ context.Context, id uint64) (*model.Application, error) {
	defer r.lock()()
	app, ok := r.s.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if slot, ok := r.s.slots[app.WorkSlotID]; ok {
		app.WorkSlot = &slot
	}
	return &app, nil
}

func (r *memApplicationRepo) GetForUpdate(_ context.Context, id uint64) (*model.Application, error) {
	defer r.lock()()
	if app, ok := r.s.apps[id]; ok {
		return &app, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memApplicationRepo) FindLive(_ context.Context, workerID, slotID uint64) (*model.Application, error) {
	defer r.lock()()
	if app := r.findLive(workerID, slotID); app != nil {
		return app, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memApplicationRepo) List(_ context.Context, filter repository.ApplicationFilter, page repository.Page) ([]model.Application, int64, error) {
	defer r.lock()()
	var result []model.Application
	for _, app := range r.s.apps {
		if filter.WorkerID != 0 && app.WorkerID != filter.WorkerID {
			continue
		}
		if filter.WorkSlotID != 0 && app.WorkSlotID != filter.WorkSlotID {
			continue
		}
		if filter.FacilityID != 0 && r.s.slots[app.WorkSlotID].FacilityID != filter.FacilityID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, app.Status) {
			continue
		}
		if slot, ok := r.s.slots[app.WorkSlotID]; ok {
			app.WorkSlot = &slot
		}
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return paginate(result, page), int64(len(result)), nil
}

func containsStatus(list []model.ApplicationStatus, s model.ApplicationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memApplicationRepo) ListStaleApplied(_ context.Context, now time.Time, limit int) ([]model.Application, error) {
	defer r.lock()()
	var result []model.Application
	for _, app := range r.s.apps {
		slot, ok := r.s.slots[app.WorkSlotID]
		if app.Status == model.ApplicationApplied && ok && !slot.StartsAt.After(now) {
			result = append(result, app)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memApplicationRepo) UpdateStatus(_ context.Context, app *model.Application, from model.ApplicationStatus) error {
	defer r.lock()()
	stored, ok := r.s.apps[app.ID]
	if !ok || stored.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = app.Status
	stored.CancelledBy = app.CancelledBy
	stored.CancelReason = app.CancelReason
	stored.CancelledAt = app.CancelledAt
	stored.DecidedBy = app.DecidedBy
	stored.DecidedAt = app.DecidedAt
	stored.MatchedAt = app.MatchedAt
	stored.UpdatedAt = time.Now()
	r.s.apps[app.ID] = stored
	return nil
}

func (r *memApplicationRepo) UpdateReview(_ context.Context, app *model.Application) error {
	defer r.lock()()
	stored, ok := r.s.apps[app.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = app.Status
	stored.WorkerReviewed = app.WorkerReviewed
	stored.FacilityReviewed = app.FacilityReviewed
	stored.RatingByWorker = app.RatingByWorker
	stored.RatingByFacility = app.RatingByFacility
	stored.WorkerComment = app.WorkerComment
	stored.FacilityComment = app.FacilityComment
	r.s.apps[app.ID] = stored
	return nil
}

// ── Mock AttendanceRepository ──

type memAttendanceRepo struct{ memView }

func (r *memAttendanceRepo) Create(_ context.Context, att *model.Attendance) error {
	defer r.lock()()
	for _, existing := range r.s.attendances {
		if existing.ApplicationID == att.ApplicationID {
			return gorm.ErrDuplicatedKey
		}
	}
	stamp(&att.BaseModel, r.s.newID())
	r.s.attendances[att.ID] = *att
	return nil
}

func (r *memAttendanceRepo) GetByID(_ context.Context, id uint64) (*model.Attendance, error) {
	defer r.lock()()
	if att, ok := r.s.attendances[id]; ok {
		return &att, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAttendanceRepo) GetByApplication(_ context.Context, applicationID uint64) (*model.Attendance, error) {
	defer r.lock()()
	for _, att := range r.s.attendances {
		if att.ApplicationID == applicationID {
			return &att, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAttendanceRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Attendance, error) {
	return r.GetByID(ctx, id)
}

func (r *memAttendanceRepo) UpdateCheckOut(_ context.Context, att *model.Attendance) error {
	defer r.lock()()
	stored, ok := r.s.attendances[att.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.CheckOutAt = att.CheckOutAt
	stored.CheckOutMethod = att.CheckOutMethod
	stored.CheckOutProofRef = att.CheckOutProofRef
	stored.EffectiveStartAt = att.EffectiveStartAt
	stored.EffectiveEndAt = att.EffectiveEndAt
	stored.EffectiveBreakMinutes = att.EffectiveBreakMinutes
	stored.WageAmount = att.WageAmount
	r.s.attendances[att.ID] = stored
	return nil
}

func (r *memAttendanceRepo) UpdateEffective(_ context.Context, att *model.Attendance) error {
	defer r.lock()()
	stored, ok := r.s.attendances[att.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.EffectiveStartAt = att.EffectiveStartAt
	stored.EffectiveEndAt = att.EffectiveEndAt
	stored.EffectiveBreakMinutes = att.EffectiveBreakMinutes
	stored.WageAmount = att.WageAmount
	stored.ModificationCount = att.ModificationCount
	r.s.attendances[att.ID] = stored
	return nil
}

// ── Mock ModificationRequestRepository ──

type memModificationRepo struct{ memView }

func (r *memModificationRepo) openFor(attendanceID, exceptID uint64) bool {
	for _, mr := range r.s.mods {
		if mr.AttendanceID == attendanceID && mr.ID != exceptID && mr.Status.IsOpen() {
			return true
		}
	}
	return false
}

func (r *memModificationRepo) Create(_ context.Context, mr *model.ModificationRequest) error {
	defer r.lock()()
	if mr.Status.IsOpen() && r.openFor(mr.AttendanceID, 0) {
		return gorm.ErrDuplicatedKey
	}
	stamp(&mr.BaseModel, r.s.newID())
	stored := *mr
	stored.Revisions = nil
	r.s.mods[mr.ID] = stored
	return nil
}

func (r *memModificationRepo) GetByID(_ context.Context, id uint64) (*model.ModificationRequest, error) {
	defer r.lock()()
	mr, ok := r.s.mods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, rev := range r.s.revisions {
		if rev.RequestID == id {
			mr.Revisions = append(mr.Revisions, rev)
		}
	}
	return &mr, nil
}

func (r *memModificationRepo) GetForUpdate(_ context.Context, id uint64) (*model.ModificationRequest, error) {
	defer r.lock()()
	if mr, ok := r.s.mods[id]; ok {
		return &mr, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memModificationRepo) FindOpen(_ context.Context, attendanceID uint64) (*model.ModificationRequest, error) {
	defer r.lock()()
	for _, mr := range r.s.mods {
		if mr.AttendanceID == attendanceID && mr.Status.IsOpen() {
			return &mr, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memModificationRepo) FindLatest(_ context.Context, attendanceID uint64) (*model.ModificationRequest, error) {
	defer r.lock()()
	var latest *model.ModificationRequest
	for _, mr := range r.s.mods {
		if mr.AttendanceID == attendanceID && (latest == nil || mr.ID > latest.ID) {
			found := mr
			latest = &found
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *memModificationRepo) List(_ context.Context, filter repository.ModificationFilter, page repository.Page) ([]model.ModificationRequest, int64, error) {
	defer r.lock()()
	var result []model.ModificationRequest
	for _, mr := range r.s.mods {
		if filter.FacilityID != 0 && mr.FacilityID != filter.FacilityID {
			continue
		}
		if filter.WorkerID != 0 && mr.WorkerID != filter.WorkerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				match = match || st == mr.Status
			}
			if !match {
				continue
			}
		}
		result = append(result, mr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return paginate(result, page), int64(len(result)), nil
}

func (r *memModificationRepo) Update(_ context.Context, mr *model.ModificationRequest, from model.ModificationStatus) error {
	defer r.lock()()
	stored, ok := r.s.mods[mr.ID]
	if !ok || stored.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	if mr.Status.IsOpen() && r.openFor(mr.AttendanceID, mr.ID) {
		return gorm.ErrDuplicatedKey
	}
	updated := *mr
	updated.Revisions = nil
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now()
	r.s.mods[mr.ID] = updated
	return nil
}

func (r *memModificationRepo) CreateRevision(_ context.Context, rev *model.ModificationRequestRevision) error {
	defer r.lock()()
	rev.ID = r.s.newID()
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
	}
	r.s.revisions = append(r.s.revisions, *rev)
	return nil
}

// ── 测试环境 ──

const (
	testEmergencyCode = "1234"
	testFacilityUser  = 900
)

// recordingPublisher 记录已发布事件，err 非空时发布失败
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}

type shiftTestEnv struct {
	store      *memStore
	repo       *repository.Repository
	now        time.Time
	facilityID uint64
	codeHash   string

	jwtMgr    *jwt.Manager
	publisher *recordingPublisher
	events    *EventDispatcher
	codes     *EmergencyCodeVerifier
	ledger    ScanLedger

	slotSvc   *slotService
	appSvc    *applicationService
	attSvc    *attendanceService
	modSvc    *modificationService
	slotStore *SlotStore
}

// setupShiftTest 固定时钟 2026-04-01 08:30 UTC；扫码测试需改用真实时间
func setupShiftTest(t *testing.T) *shiftTestEnv {
	t.Helper()
	store := newMemStore()
	repo := store.repository(false)
	logger := zap.NewNop()

	env := &shiftTestEnv{
		store:     store,
		repo:      repo,
		now:       time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
		jwtMgr:    jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret", ScanTokenTTL: 2 * time.Minute}),
		publisher: &recordingPublisher{},
		ledger:    NewMemoryScanLedger(),
	}
	clock := func() time.Time { return env.now }

	env.events = NewEventDispatcher(env.publisher, logger)
	env.codes = NewEmergencyCodeVerifier(NewMemoryAttemptStore(), 5, time.Hour, logger)
	env.slotStore = NewSlotStore(false, logger)

	env.slotSvc = NewSlotService(repo, env.jwtMgr, time.UTC, logger).(*slotService)
	env.slotSvc.now = clock
	env.appSvc = NewApplicationService(repo, env.slotStore, env.events, logger).(*applicationService)
	env.appSvc.now = clock
	env.attSvc = NewAttendanceService(repo, env.jwtMgr, env.codes, env.ledger, env.events, time.Hour, logger).(*attendanceService)
	env.attSvc.now = clock
	env.modSvc = NewModificationService(repo, env.events, time.UTC, logger).(*modificationService)
	env.modSvc.now = clock

	hash, err := bcrypt.GenerateFromPassword([]byte(testEmergencyCode), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成紧急码哈希失败: %v", err)
	}
	env.codeHash = string(hash)

	facility := &model.Facility{Name: "测试设施", IsActive: true}
	if err := repo.Facility.Create(context.Background(), facility); err != nil {
		t.Fatalf("创建设施失败: %v", err)
	}
	env.facilityID = facility.ID

	t.Cleanup(env.events.Wait)
	return env
}

func workerActor(id uint64) ActorContext {
	return ActorContext{Kind: ActorWorker, ID: id}
}

func (e *shiftTestEnv) facilityActor() ActorContext {
	return ActorContext{Kind: ActorFacility, ID: testFacilityUser, FacilityID: e.facilityID}
}

// seedSlot 当前时刻 30 分钟后开始的 9 小时槽位，休息 60 分钟，时薪 1200，交通费 500
func (e *shiftTestEnv) seedSlot(t *testing.T, capacity int, requiresApproval bool) *model.WorkSlot {
	t.Helper()
	ctx := context.Background()
	job := &model.Job{
		FacilityID:        e.facilityID,
		Title:             "夜间护理",
		BreakMinutes:      60,
		HourlyRate:        1200,
		TransportationFee: 500,
		RequiresApproval:  requiresApproval,
	}
	if err := e.repo.Job.Create(ctx, job); err != nil {
		t.Fatalf("创建招聘信息失败: %v", err)
	}

	start := e.now.Truncate(time.Minute).Add(30 * time.Minute)
	slots := []model.WorkSlot{{
		JobID:             job.ID,
		FacilityID:        e.facilityID,
		StartsAt:          start,
		EndsAt:            start.Add(9 * time.Hour),
		BreakMinutes:      60,
		HourlyRate:        1200,
		TransportationFee: 500,
		RequiresApproval:  requiresApproval,
		RecruitmentCount:  capacity,
		Deadline:          start.Add(-10 * time.Minute),
		VisibleFrom:       e.now.Add(-time.Hour),
		EmergencyCodeHash: e.codeHash,
	}}
	if err := e.repo.WorkSlot.BatchCreate(ctx, slots); err != nil {
		t.Fatalf("创建槽位失败: %v", err)
	}
	return &slots[0]
}

// seedApplication 直接写入指定状态的报名并同步槽位计数
func (e *shiftTestEnv) seedApplication(t *testing.T, slot *model.WorkSlot, workerID uint64, status model.ApplicationStatus) *model.Application {
	t.Helper()
	ctx := context.Background()
	app := &model.Application{WorkerID: workerID, WorkSlotID: slot.ID, Status: status}
	if err := e.repo.Application.Create(ctx, app); err != nil {
		t.Fatalf("创建报名失败: %v", err)
	}
	applied, matched := 0, 0
	if status.IsLive() {
		applied = 1
	}
	if status.HoldsMatch() {
		matched = 1
	}
	if err := e.repo.WorkSlot.AdjustCounters(ctx, slot.ID, applied, matched); err != nil {
		t.Fatalf("更新槽位计数失败: %v", err)
	}
	return app
}

func (e *shiftTestEnv) slotCounters(t *testing.T, slotID uint64) (int, int) {
	t.Helper()
	slot, err := e.repo.WorkSlot.GetByID(context.Background(), slotID)
	if err != nil {
		t.Fatalf("查询槽位失败: %v", err)
	}
	return slot.AppliedCount, slot.MatchedCount
}

func (e *shiftTestEnv) applicationStatus(t *testing.T, id uint64) model.ApplicationStatus {
	t.Helper()
	app, err := e.repo.Application.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("查询报名失败: %v", err)
	}
	return app.Status
}
