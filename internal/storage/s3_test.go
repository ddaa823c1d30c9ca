package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client is a mock implementation of S3 client for testing
type MockS3Client struct {
	mock.Mock
}

// PutObject mocks the S3 PutObject operation
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

// DeleteObject mocks the S3 DeleteObject operation
func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

// HeadObject mocks the S3 HeadObject operation
func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func TestS3Storage_Upload(t *testing.T) {
	tests := []struct {
		name       string
		setupMock  func(*MockS3Client)
		wantURL    string
		errMessage string
	}{
		{
			name: "successful upload",
			setupMock: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
					return *input.Bucket == "reports" &&
						*input.Key == "reports/1/trip-report.pdf" &&
						*input.ContentType == "application/pdf"
				})).Return(&s3.PutObjectOutput{}, nil)
			},
			wantURL: "https://cdn.example.com/reports/1/trip-report.pdf",
		},
		{
			name: "upload failure - access denied",
			setupMock: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.Anything).
					Return(nil, errors.New("AccessDenied: Access Denied"))
			},
			errMessage: "failed to upload to S3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockS3Client)
			tt.setupMock(mockClient)
			storage := NewS3Storage(mockClient, "reports", "us-east-1", "https://cdn.example.com")

			url, err := storage.Upload(context.Background(), "reports/1/trip-report.pdf", strings.NewReader("pdf"), "application/pdf")
			if tt.errMessage != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMessage)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, url)
			}

			mockClient.AssertExpectations(t)
		})
	}
}

func TestS3Storage_Delete(t *testing.T) {
	mockClient := new(MockS3Client)
	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Bucket == "reports" && *input.Key == "a.pdf"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	storage := NewS3Storage(mockClient, "reports", "us-east-1", "")
	assert.NoError(t, storage.Delete(context.Background(), "a.pdf"))
	mockClient.AssertExpectations(t)
}

func TestS3Storage_Exists(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "present", want: true},
		{name: "not found", err: &types.NotFound{}, want: false},
		{name: "other failure", err: errors.New("throttled"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockS3Client)
			if tt.err != nil {
				mockClient.On("HeadObject", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				mockClient.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{}, nil)
			}

			storage := NewS3Storage(mockClient, "reports", "us-east-1", "")
			got, err := storage.Exists(context.Background(), "a.pdf")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3Storage_GetURL(t *testing.T) {
	assert.Equal(t, "https://reports.s3.eu-west-1.amazonaws.com/a.pdf",
		NewS3Storage(nil, "reports", "eu-west-1", "").GetURL("a.pdf"))
	assert.Equal(t, "https://cdn.example.com/a.pdf",
		NewS3Storage(nil, "reports", "eu-west-1", "https://cdn.example.com/").GetURL("a.pdf"))
}
