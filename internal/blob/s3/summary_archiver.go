package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brndhq/brndindexer/internal/domain"
)

// SummaryArchiver implements domain.SummarySink by writing each closed
// bucket's summary to the bucket at summaries/{granularity}/{bucket}.json.
// Keys are deterministic, so a replayed emission overwrites the same object
// with identical content rather than duplicating it.
type SummaryArchiver struct {
	client *Client
}

// NewSummaryArchiver creates a SummaryArchiver backed by the given client.
func NewSummaryArchiver(client *Client) *SummaryArchiver {
	return &SummaryArchiver{client: client}
}

// archivedScore is the stored form of one leaderboard row. Points travel as a
// decimal string.
type archivedScore struct {
	BrandID     int64  `json:"brandId"`
	Points      string `json:"points"`
	GoldCount   int    `json:"goldCount"`
	SilverCount int    `json:"silverCount"`
	BronzeCount int    `json:"bronzeCount"`
}

type archivedSummary struct {
	Granularity string          `json:"granularity"`
	Bucket      uint64          `json:"bucket"`
	Top         []archivedScore `json:"top"`
}

func summaryKey(g domain.Granularity, bucket uint64) string {
	return "summaries/" + string(g) + "/" + strconv.FormatUint(bucket, 10) + ".json"
}

func (a *SummaryArchiver) EmitPeriodSummary(ctx context.Context, s *domain.PeriodSummary) error {
	doc := archivedSummary{
		Granularity: string(s.Granularity),
		Bucket:      s.Bucket,
		Top:         make([]archivedScore, 0, len(s.Top)),
	}
	for _, sc := range s.Top {
		points := "0"
		if sc.Points != nil {
			points = sc.Points.String()
		}
		doc.Top = append(doc.Top, archivedScore{
			BrandID:     sc.BrandID,
			Points:      points,
			GoldCount:   sc.GoldCount,
			SilverCount: sc.SilverCount,
			BronzeCount: sc.BronzeCount,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("s3blob: marshal summary %s/%d: %w", s.Granularity, s.Bucket, err)
	}

	key := summaryKey(s.Granularity, s.Bucket)
	_, err = a.client.S3().PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.Bucket()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put summary %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SummarySink = (*SummaryArchiver)(nil)
