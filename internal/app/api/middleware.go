// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"
)

// CORS 跨域中间件。allowOrigins 为空时放行所有来源，
// OPTIONS 预检请求直接返回 204
func CORS(allowOrigins []string) app.HandlerFunc {
	origin := "*"
	if len(allowOrigins) > 0 {
		origin = strings.Join(allowOrigins, ", ")
	}
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		ctx.Header("Access-Control-Expose-Headers", "Content-Length")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Max-Age", "86400")

		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}

// BearerAuth 要求 Authorization 头携带非空 Bearer token。token 不在本服务
// 校验，原样透传给组合服务，由上游决定其有效性
func BearerAuth() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if bearerToken(ctx) == "" {
			ctx.JSON(consts.StatusUnauthorized, map[string]string{
				"error": "missing or malformed Authorization header",
			})
			ctx.Abort()
			return
		}
		ctx.Next(c)
	}
}

// RateLimit 进程级令牌桶限流，rps<=0 时默认 50
func RateLimit(rps int) app.HandlerFunc {
	if rps <= 0 {
		rps = 50
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	return func(c context.Context, ctx *app.RequestContext) {
		if !limiter.Allow() {
			ctx.JSON(consts.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
			})
			ctx.Abort()
			return
		}
		ctx.Next(c)
	}
}

// bearerToken 取出 Authorization 头中的不透明 token，头缺失或
// 非 Bearer 形式时为空串
func bearerToken(ctx *app.RequestContext) string {
	auth := string(ctx.GetHeader("Authorization"))
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
