package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrObjectNotFound 表示导出文件已不在 Bucket 中（被生命周期策略清理或手动删除）。
var ErrObjectNotFound = errors.New("storage: object not found")

// IsNoSuchKey 判断错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch strings.ToLower(strings.TrimSpace(resp.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
		return resp.StatusCode == 404 && resp.Code == ""
	}

	// 部分网关只返回文本。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}

// wrapObjectErr 把“对象不存在”统一成 ErrObjectNotFound，其余错误附上操作与对象名。
func wrapObjectErr(op, key string, err error) error {
	if IsNoSuchKey(err) {
		return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}
