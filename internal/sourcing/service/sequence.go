package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
)

// 单据族
const (
	FamilyRFQ       = "RFQ"
	FamilyQuotation = "QUO"
)

// SequenceService 单据编号生成器
// 格式 {family}-{YYYY}-{NNNNN}，序号按(单据族,年份)从1递增
type SequenceService struct {
	repo *repository.SequenceRepository
	now  func() time.Time
}

func NewSequenceService(repo *repository.SequenceRepository) *SequenceService {
	return &SequenceService{repo: repo, now: time.Now}
}

// SetClock 注入时钟（测试用）
func (s *SequenceService) SetClock(now func() time.Time) {
	s.now = now
}

// NextNumber 分配下一个单据编号
func (s *SequenceService) NextNumber(ctx context.Context, family string) (string, error) {
	return s.NextNumberForYear(ctx, family, s.now().Year())
}

// NextNumberForYear 指定年份分配编号
// 计数行不存在时先扫一次既有单据的最大编号做种子，老数据的编号序列得以延续
func (s *SequenceService) NextNumberForYear(ctx context.Context, family string, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", family, year)

	var seed int64
	exists, err := s.repo.Exists(ctx, family, year)
	if err != nil {
		return "", fmt.Errorf("查询编号计数器失败: %w", err)
	}
	if !exists {
		maxNumber, err := s.repo.MaxExistingNumber(ctx, family, prefix)
		if err != nil {
			return "", fmt.Errorf("扫描既有编号失败: %w", err)
		}
		seed = parseSequence(maxNumber, prefix)
	}

	value, err := s.repo.Next(ctx, family, year, seed)
	if err != nil {
		return "", fmt.Errorf("分配编号失败: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, value), nil
}

func parseSequence(number, prefix string) int64 {
	if number == "" || !strings.HasPrefix(number, prefix) {
		return 0
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil {
		return 0
	}
	return seq
}
