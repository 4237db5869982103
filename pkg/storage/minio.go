// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"speak-coach-go/internal/config"
	"speak-coach-go/pkg/log"
)

// AudioArchive 按会话归档每一轮的原始音频。
type AudioArchive interface {
	ArchiveTurnAudio(ctx context.Context, conversationID string, turn int, audio []byte) error
}

type minioArchive struct {
	client     *minio.Client
	bucketName string
}

// NewAudioArchive 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewAudioArchive(cfg config.MinIOConfig) (AudioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	log.Info("MinIO 客户端初始化成功")
	return &minioArchive{client: client, bucketName: cfg.BucketName}, nil
}

// ArchiveTurnAudio 将一轮的原始 WAV 存入 conversations/<id>/turn-<n>.wav。
func (a *minioArchive) ArchiveTurnAudio(ctx context.Context, conversationID string, turn int, audio []byte) error {
	objectName := fmt.Sprintf("conversations/%s/turn-%d.wav", conversationID, turn)
	_, err := a.client.PutObject(ctx, a.bucketName, objectName,
		bytes.NewReader(audio), int64(len(audio)),
		minio.PutObjectOptions{ContentType: "audio/wav"})
	if err != nil {
		return fmt.Errorf("归档音频失败: %w", err)
	}
	return nil
}
