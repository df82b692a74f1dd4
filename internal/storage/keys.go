package storage

import "fmt"

// ResumePrefix 是某份简历全部导出文件的公共前缀。
func ResumePrefix(userID uint, resumeID string) string {
	return fmt.Sprintf("exports/%d/%s/", userID, resumeID)
}

// ExportObjectKey 返回一次导出的 PDF 对象名。
func ExportObjectKey(userID uint, resumeID, exportID string) string {
	return ResumePrefix(userID, resumeID) + exportID + ".pdf"
}
