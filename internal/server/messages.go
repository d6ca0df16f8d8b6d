package server

import "github.com/docuflow/invoice-verifier/internal/common"

// User-facing messages live here, outside the core: the pipeline only ever
// produces error codes, and the presentation layer remaps them to
// locale-specific guidance.
var errorMessages = map[common.ErrorCode]string{
	common.CodeNoFile:         "파일이 없습니다. PDF/JPG 파일을 다시 선택해주세요.",
	common.CodeNoAPIKey:       "서버 설정 오류(OPENAI_API_KEY). 관리자에게 문의하세요.",
	common.CodePDFParseFailed: "PDF 파싱 실패 - 스캔 품질을 확인하거나 이미지로 다시 업로드해주세요.",
	common.CodeExtractFailed:  "API 응답 지연 - 문서를 다시 업로드해주세요.",
	common.CodeNotExportable:  "검증이 완료되지 않아 다운로드할 수 없습니다.",
}

func messageFor(code common.ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "처리 중 오류가 발생했습니다."
}
