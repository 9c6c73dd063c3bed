package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// uintParam 解析路径参数中的ID,非法时返回0
func uintParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// intQuery 解析查询参数中的整数,缺省或非法时返回def
func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
