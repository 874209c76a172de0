package job

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/store"
)

// FileName 为任务列表文件名。
const FileName = "jobs.json"

// ErrJobNotFound 表示按 ID 查找的任务不存在。删除不存在的任务不会返回该错误。
var ErrJobNotFound = errors.New("job not found")

// Store 将任务列表整体保存在一个 JSON 数组文件中。
type Store struct {
	file   *store.JSONFile
	logger *zap.Logger
}

// NewStore 创建任务存储。
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		file:   store.NewJSONFile(path),
		logger: logger,
	}
}

// Path 返回任务文件路径。
func (s *Store) Path() string {
	return s.file.Path()
}

// Load 读取全部任务。文件不存在时创建空文件，文件为空时返回空列表。
func (s *Store) Load() ([]Job, error) {
	s.file.Lock()
	defer s.file.Unlock()
	return s.load()
}

// Save 用 jobs 覆盖整个任务文件。
func (s *Store) Save(jobs []Job) error {
	s.file.Lock()
	defer s.file.Unlock()
	return s.save(jobs)
}

// Get 按 ID 查找任务。
func (s *Store) Get(id string) (Job, error) {
	jobs, err := s.Load()
	if err != nil {
		return Job{}, err
	}
	for _, j := range jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// Upsert 替换 ID 相同的任务，不存在则追加，然后整体写回。
func (s *Store) Upsert(j Job) error {
	s.file.Lock()
	defer s.file.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range jobs {
		if jobs[i].ID == j.ID {
			s.logger.Debug("更新已有任务",
				zap.String("job_id", j.ID),
				zap.Int64("old_last_run", jobs[i].LastRun),
				zap.Int64("new_last_run", j.LastRun),
			)
			jobs[i] = j
			replaced = true
			break
		}
	}
	if !replaced {
		jobs = append(jobs, j)
	}

	return s.save(dedupe(jobs))
}

// Delete 删除所有 ID 为 id 的任务，任务不存在时不报错，然后整体写回。
func (s *Store) Delete(id string) error {
	s.file.Lock()
	defer s.file.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}

	kept := jobs[:0]
	for _, j := range jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	if len(kept) == len(jobs) {
		s.logger.Debug("删除的任务不存在", zap.String("job_id", id))
	}

	return s.save(kept)
}

func (s *Store) load() ([]Job, error) {
	var jobs []Job
	if _, err := s.file.Read(&jobs); err != nil {
		return nil, fmt.Errorf("job: 读取任务列表失败: %w", err)
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

func (s *Store) save(jobs []Job) error {
	if jobs == nil {
		jobs = []Job{}
	}
	if err := s.file.Write(jobs); err != nil {
		return fmt.Errorf("job: 写入任务列表失败: %w", err)
	}
	return nil
}

// dedupe 保留每个 ID 的第一次出现，保证写回后 ID 唯一。
func dedupe(jobs []Job) []Job {
	seen := make(map[string]struct{}, len(jobs))
	out := jobs[:0]
	for _, j := range jobs {
		if _, ok := seen[j.ID]; ok {
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out
}

// Skip 在不执行的情况下把任务的上次执行时间推进到 now，使本周期不再到期。
func (s *Store) Skip(id string, now time.Time) (Job, error) {
	s.file.Lock()
	defer s.file.Unlock()

	jobs, err := s.load()
	if err != nil {
		return Job{}, err
	}
	for i := range jobs {
		if jobs[i].ID == id {
			jobs[i].MarkRun(now)
			if err := s.save(jobs); err != nil {
				return Job{}, err
			}
			return jobs[i], nil
		}
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}
