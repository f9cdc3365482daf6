package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/filter"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("maestro/workflow")

// Service runs the review workflow of a campaign. Every call loads the
// stored revision state into a fresh tracker, so the service itself holds no
// campaign state.
type Service struct {
	campaigns   CampaignSource
	submissions SubmissionSource
	masters     MasterSource
	revisions   RevisionStore

	logger      *logrus.Logger
	metrics     *Metrics
	lock        LockFunc
	trackerOpts []consensus.TrackerOption
}

type Option func(*Service)

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLock(lock LockFunc) Option {
	return func(s *Service) { s.lock = lock }
}

// WithTrackerOptions sets the clock and id generator used for decisions.
func WithTrackerOptions(opts ...consensus.TrackerOption) Option {
	return func(s *Service) { s.trackerOpts = append(s.trackerOpts, opts...) }
}

func NewService(campaigns CampaignSource, submissions SubmissionSource, masters MasterSource, revisions RevisionStore, opts ...Option) *Service {
	s := &Service{
		campaigns:   campaigns,
		submissions: submissions,
		masters:     masters,
		revisions:   revisions,
		logger:      config.GetLogger(),
		lock:        redisCampaignLock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreService wires every port to one gorm store.
func NewStoreService(store *models.Store, opts ...Option) *Service {
	return NewService(store, store, store, store, opts...)
}

func redisCampaignLock(ctx context.Context, campaignId int, funcName string) (func(), error) {
	return utils.CampaignLock(ctx, campaignId, "review", "workflow", funcName)
}

func (s *Service) startSpan(ctx context.Context, name string, campaignId int) (context.Context, trace.Span, func(error)) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "workflow."+name, trace.WithAttributes(attribute.Int("campaign_id", campaignId)))
	return ctx, span, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.observe(name, time.Since(started).Seconds())
	}
}

func (s *Service) logError(funcName string, campaignId int, data any, err error) {
	// client errors are answered, not logged
	switch consensus.KindOf(err) {
	case consensus.KindValidation, consensus.KindNotFound, consensus.KindInvalidState:
		return
	}
	config.LogError(s.logger, "workflow", funcName, "campaign "+strconv.Itoa(campaignId), data, err)
}

func (s *Service) ensureCampaign(ctx context.Context, campaignId int) error {
	if s.campaigns == nil {
		return nil
	}
	_, err := s.campaigns.GetCampaign(ctx, campaignId)
	return err
}

// campaignView is the loaded state of a campaign: aggregated results keyed by
// SKU and a tracker holding its decisions and queue.
type campaignView struct {
	submissions []consensus.ScanSubmission
	results     map[string]consensus.AggregationResult
	tracker     *consensus.Tracker
}

// loadView fetches submissions and revision state in parallel, then the
// master records of every SKU seen. skus narrows the submissions loaded.
func (s *Service) loadView(ctx context.Context, campaignId int, skus []string) (*campaignView, error) {
	var (
		subs      []consensus.ScanSubmission
		decisions []consensus.Decision
		entries   []consensus.UpdateQueueEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = s.submissions.ListSubmissions(gctx, campaignId, models.SubmissionQuery{Skus: skus})
		return err
	})
	g.Go(func() error {
		var err error
		decisions, entries, err = s.revisions.LoadRevisionState(gctx, campaignId)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bySku := consensus.GroupBySKU(subs)
	masters, err := s.masters.GetMasterRecords(ctx, campaignId, consensus.SortedSKUs(bySku))
	if err != nil {
		return nil, err
	}
	results := consensus.AggregateCampaign(subs, masters)

	tracker := consensus.NewTracker(campaignId, s.trackerOpts...)
	// register before restoring so applied snapshots are not lost
	for _, sku := range consensus.SortedSKUs(results) {
		tracker.Register(results[sku])
	}
	tracker.Restore(decisions, entries)
	for sku, r := range results {
		tracker.Annotate(&r)
		results[sku] = r
	}
	return &campaignView{submissions: subs, results: results, tracker: tracker}, nil
}

// loadTracker restores only the revision state; used by queue operations.
func (s *Service) loadTracker(ctx context.Context, campaignId int) (*consensus.Tracker, error) {
	decisions, entries, err := s.revisions.LoadRevisionState(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	tracker := consensus.NewTracker(campaignId, s.trackerOpts...)
	tracker.Restore(decisions, entries)
	return tracker, nil
}

// Review returns the aggregated results of a campaign, sorted by SKU, with
// their decisions attached and q applied.
func (s *Service) Review(ctx context.Context, campaignId int, q ReviewQuery) (rows []consensus.AggregationResult, err error) {
	ctx, _, end := s.startSpan(ctx, "Review", campaignId)
	defer func() { end(err) }()

	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return nil, err
	}
	var view *campaignView
	view, err = s.loadView(ctx, campaignId, nil)
	if err != nil {
		s.logError("Review", campaignId, q, err)
		return nil, err
	}
	rows = make([]consensus.AggregationResult, 0, len(view.results))
	for _, sku := range consensus.SortedSKUs(view.results) {
		rows = append(rows, view.results[sku])
	}
	return filter.Apply(rows, q.Predicates()), nil
}

// ReviewSku returns the aggregation of one SKU.
func (s *Service) ReviewSku(ctx context.Context, campaignId int, sku string) (result consensus.AggregationResult, err error) {
	ctx, _, end := s.startSpan(ctx, "ReviewSku", campaignId)
	defer func() { end(err) }()

	sku = consensus.NormalizeSKU(sku)
	if sku == "" {
		return consensus.AggregationResult{}, consensus.NewValidationError("", "sku is required")
	}
	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return consensus.AggregationResult{}, err
	}
	view, err := s.loadView(ctx, campaignId, []string{sku})
	if err != nil {
		return consensus.AggregationResult{}, err
	}
	r, ok := view.results[sku]
	if !ok {
		return consensus.AggregationResult{}, consensus.NewNotFoundError(sku, "sku has no submissions in this campaign")
	}
	return r, nil
}

// DecideInput is a review decision on one proposal.
type DecideInput struct {
	Sku       string
	Triple    consensus.Triple
	Outcome   consensus.Outcome
	DecidedBy string
}

// DecisionResult is the stored decision and, for accepts, the queued update.
type DecisionResult struct {
	Decision   consensus.Decision          `json:"decision"`
	QueueEntry *consensus.UpdateQueueEntry `json:"queue_entry,omitempty"`
}

// Decide records an accept or reject for one proposal of a SKU.
func (s *Service) Decide(ctx context.Context, campaignId int, in DecideInput) (res *DecisionResult, err error) {
	ctx, _, end := s.startSpan(ctx, "Decide", campaignId)
	defer func() { end(err) }()

	sku := consensus.NormalizeSKU(in.Sku)
	if sku == "" {
		return nil, consensus.NewValidationError(in.Sku, "sku is required")
	}
	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, campaignId, "Decide")
	if err != nil {
		s.logError("Decide", campaignId, sku, err)
		return nil, err
	}
	defer unlock()

	view, err := s.loadView(ctx, campaignId, []string{sku})
	if err != nil {
		s.logError("Decide", campaignId, sku, err)
		return nil, err
	}
	if _, seen := view.results[sku]; !seen {
		if _, decided := view.tracker.Decision(sku, in.Triple); !decided {
			return nil, consensus.NewNotFoundError(sku, "sku has no submissions in this campaign")
		}
	}

	d, err := view.tracker.Decide(sku, in.Triple, in.Outcome, in.DecidedBy)
	if err != nil {
		return nil, err
	}
	res = &DecisionResult{Decision: *d}
	if d.QueueEntryID != "" {
		if e, ok := view.tracker.Entry(d.QueueEntryID); ok {
			res.QueueEntry = &e
		}
	}
	if err = s.revisions.PersistDecision(ctx, campaignId, *d, res.QueueEntry); err != nil {
		s.logError("Decide", campaignId, d, err)
		return nil, err
	}
	s.metrics.decided(string(in.Outcome))
	s.logger.WithFields(logrus.Fields{
		"campaign_id": campaignId,
		"sku":         sku,
		"triple":      d.Triple.Key(),
		"state":       d.State,
	}).Info("decision recorded")
	return res, nil
}

// BatchReport is a batch result with the skip reasons rendered as text.
type BatchReport struct {
	consensus.BatchResult
	Reasons map[string]string `json:"reasons"`
}

func newBatchReport(r consensus.BatchResult) BatchReport {
	reasons := make(map[string]string, len(r.Reasons))
	for id, err := range r.Reasons {
		reasons[id] = err.Error()
	}
	return BatchReport{BatchResult: r, Reasons: reasons}
}

func cleanIds(ids []string) []string {
	return utils.UniqueSlice(utils.TrimmedNonEmpty(ids))
}

// ApplyBatch applies pending queue entries to the maestro.
func (s *Service) ApplyBatch(ctx context.Context, campaignId int, ids []string, decidedBy string) (BatchReport, error) {
	return s.runBatch(ctx, campaignId, models.QueueOpApply, ids, decidedBy)
}

// RejectBatch rejects pending queue entries and their decisions.
func (s *Service) RejectBatch(ctx context.Context, campaignId int, ids []string, decidedBy string) (BatchReport, error) {
	return s.runBatch(ctx, campaignId, models.QueueOpReject, ids, decidedBy)
}

func (s *Service) Archive(ctx context.Context, campaignId int, ids []string) (BatchReport, error) {
	return s.runBatch(ctx, campaignId, models.QueueOpArchive, ids, "")
}

func (s *Service) Unarchive(ctx context.Context, campaignId int, ids []string) (BatchReport, error) {
	return s.runBatch(ctx, campaignId, models.QueueOpUnarchive, ids, "")
}

func (s *Service) runBatch(ctx context.Context, campaignId int, op models.QueueOp, ids []string, decidedBy string) (report BatchReport, err error) {
	funcName := "Batch_" + string(op)
	ctx, span, end := s.startSpan(ctx, funcName, campaignId)
	defer func() { end(err) }()

	ids = cleanIds(ids)
	span.SetAttributes(attribute.Int("ids", len(ids)))
	if len(ids) == 0 {
		return BatchReport{}, consensus.NewValidationError("", "ids are required")
	}
	if (op == models.QueueOpApply || op == models.QueueOpReject) && strings.TrimSpace(decidedBy) == "" {
		return BatchReport{}, consensus.NewValidationError("", "decided_by is required")
	}
	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return BatchReport{}, err
	}

	unlock, err := s.lock(ctx, campaignId, funcName)
	if err != nil {
		s.logError(funcName, campaignId, ids, err)
		return BatchReport{}, err
	}
	defer unlock()

	tracker, err := s.loadTracker(ctx, campaignId)
	if err != nil {
		s.logError(funcName, campaignId, ids, err)
		return BatchReport{}, err
	}

	var result consensus.BatchResult
	switch op {
	case models.QueueOpApply:
		result, err = tracker.ApplyBatch(ids, decidedBy)
	case models.QueueOpReject:
		result, err = tracker.RejectBatch(ids, decidedBy)
	case models.QueueOpArchive:
		result = tracker.Archive(ids)
	case models.QueueOpUnarchive:
		result = tracker.Unarchive(ids)
	default:
		err = errors.New("unknown queue operation " + string(op))
	}
	if err != nil {
		return BatchReport{}, err
	}

	change := models.QueueChange{Op: op}
	for _, id := range result.AppliedIDs {
		e, _ := tracker.Entry(id)
		change.Entries = append(change.Entries, e)
		if op == models.QueueOpApply || op == models.QueueOpReject {
			if d, ok := tracker.DecisionForEntry(id); ok {
				change.Decisions = append(change.Decisions, d)
			}
		}
	}
	if err = s.revisions.PersistQueueChanges(ctx, campaignId, change); err != nil {
		s.logError(funcName, campaignId, ids, err)
		return BatchReport{}, err
	}

	s.metrics.batch(string(op), result.AppliedCount, len(result.SkippedIDs))
	s.logger.WithFields(logrus.Fields{
		"campaign_id": campaignId,
		"op":          op,
		"applied":     result.AppliedCount,
		"skipped":     len(result.SkippedIDs),
	}).Info("queue batch processed")
	return newBatchReport(result), nil
}

// Queue lists update queue entries in creation order with q applied.
func (s *Service) Queue(ctx context.Context, campaignId int, q QueueQuery) (rows []consensus.UpdateQueueEntry, err error) {
	ctx, _, end := s.startSpan(ctx, "Queue", campaignId)
	defer func() { end(err) }()

	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return nil, err
	}
	tracker, err := s.loadTracker(ctx, campaignId)
	if err != nil {
		s.logError("Queue", campaignId, q, err)
		return nil, err
	}
	archive := q.Archive
	if archive == "" {
		archive = consensus.ArchiveFilterActive
	}
	return filter.Apply(tracker.Queue(archive), q.Predicates()), nil
}

// DiscrepanciesVsMaster compares each SKU's consensus with the maestro.
func (s *Service) DiscrepanciesVsMaster(ctx context.Context, campaignId int, q DiscrepancyQuery) (report VsMasterReport, err error) {
	ctx, _, end := s.startSpan(ctx, "DiscrepanciesVsMaster", campaignId)
	defer func() { end(err) }()

	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return VsMasterReport{}, err
	}
	view, err := s.loadView(ctx, campaignId, nil)
	if err != nil {
		s.logError("DiscrepanciesVsMaster", campaignId, q, err)
		return VsMasterReport{}, err
	}
	scoped := filter.Apply(consensus.ComputeVsMaster(view.results), q.vsMasterScope())
	report.KPI = consensus.VsMasterKPI(scoped)
	report.Records = filter.Apply(scoped, filter.Predicates[consensus.DiscrepancyRecord]{
		"conflict": filter.Bool(q.onlyConflicts(), func(r consensus.DiscrepancyRecord) bool { return r.Conflict }),
	})
	return report, nil
}

// DiscrepanciesCrossBranch compares the branch majorities of each SKU.
func (s *Service) DiscrepanciesCrossBranch(ctx context.Context, campaignId int, q DiscrepancyQuery) (report CrossBranchReport, err error) {
	ctx, _, end := s.startSpan(ctx, "DiscrepanciesCrossBranch", campaignId)
	defer func() { end(err) }()

	if err = s.ensureCampaign(ctx, campaignId); err != nil {
		return CrossBranchReport{}, err
	}
	subs, err := s.submissions.ListSubmissions(ctx, campaignId, models.SubmissionQuery{})
	if err != nil {
		s.logError("DiscrepanciesCrossBranch", campaignId, q, err)
		return CrossBranchReport{}, err
	}
	scoped := filter.Apply(consensus.ComputeCrossBranch(consensus.GroupBySKU(subs)), q.crossBranchScope())
	report.KPI = consensus.CrossBranchKPI(scoped)
	report.Records = filter.Apply(scoped, filter.Predicates[consensus.BranchDiscrepancyRecord]{
		"conflict": filter.Bool(q.onlyConflicts(), func(r consensus.BranchDiscrepancyRecord) bool { return r.Conflict }),
	})
	return report, nil
}
