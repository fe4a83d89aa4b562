package submission

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/flowline-ai/flowline/internal/archive"
	"github.com/flowline-ai/flowline/internal/history"
	"github.com/flowline-ai/flowline/internal/notify"
	"github.com/flowline-ai/flowline/internal/wizard"
)

type memS3 struct {
	objects map[string][]byte
}

func (m *memS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, &notFoundErr{}
}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "NoSuchKey" }

type recordingEmail struct {
	subjects []string
}

func (r *recordingEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	r.subjects = append(r.subjects, msg.Subject)
	return nil
}

func completedSession(t *testing.T, persisted bool) *wizard.Session {
	t.Helper()
	session := wizard.NewSession("42", "Lead Follow-up", "manual")
	require.NoError(t, session.Complete("wf-1", persisted))
	return session
}

func TestSubmissionCompletedRecordsHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO submission_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "42", "wf-1", "Lead Follow-up",
			history.OutcomePersisted, sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder := NewRecorder(RecorderConfig{History: history.NewRepository(db)})
	recorder.SubmissionCompleted(context.Background(), completedSession(t, true), nil, "")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectedSubmissionSkipsArchiveAndNotify(t *testing.T) {
	s3stub := &memS3{}
	email := &recordingEmail{}
	recorder := NewRecorder(RecorderConfig{
		Archive:    archive.NewStore(s3stub, "archive-bucket", nil),
		Notify:     notify.NewService(email, nil, nil),
		OwnerEmail: func(string) string { return "owner@example.com" },
	})

	session := wizard.NewSession("42", "Lead Follow-up", "manual")
	recorder.SubmissionCompleted(context.Background(), session, []string{"name"}, "")

	require.Empty(t, s3stub.objects, "rejected submissions must not be archived")
	require.Empty(t, email.subjects, "rejected submissions must not notify")
}

func TestFallbackCompletionArchivesAndNotifies(t *testing.T) {
	s3stub := &memS3{}
	email := &recordingEmail{}
	recorder := NewRecorder(RecorderConfig{
		Archive:    archive.NewStore(s3stub, "archive-bucket", nil),
		Notify:     notify.NewService(email, nil, nil),
		OwnerEmail: func(string) string { return "owner@example.com" },
	})

	recorder.SubmissionCompleted(context.Background(), completedSession(t, false), nil, "engine: status 502")

	require.NotEmpty(t, s3stub.objects, "fallback completions are archived")
	require.Len(t, email.subjects, 1)
	require.Contains(t, email.subjects[0], "needs attention")
}
