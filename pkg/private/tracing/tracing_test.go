// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/srvpool/pkg/private/tracing"
)

func TestCtxWith(t *testing.T) {
	tracer := mocktracer.New()
	parent := tracer.StartSpan("parent")
	ctx := opentracing.ContextWithSpan(context.Background(), parent)

	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	span, ctx := tracing.CtxWith(ctx, "child")
	assert.Equal(t, span, opentracing.SpanFromContext(ctx))
	tracing.Component(span, "srvpool")
	tracing.ResultLabel(span, "ok_success")
	span.Finish()
	parent.Finish()

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)
	child := spans[0]
	assert.Equal(t, "child", child.OperationName)
	assert.Equal(t, parent.Context().(mocktracer.MockSpanContext).SpanID, child.ParentID)
	assert.Equal(t, "srvpool", child.Tag("component"))
	assert.Equal(t, "ok_success", child.Tag("result.label"))
}

func TestError(t *testing.T) {
	tracer := mocktracer.New()

	span := tracer.StartSpan("ok")
	tracing.Error(span, nil)
	span.Finish()

	span = tracer.StartSpan("failed")
	tracing.Error(span, errors.New("boom"))
	span.Finish()

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 2)
	assert.Nil(t, spans[0].Tag("error"))
	assert.Equal(t, true, spans[1].Tag("error"))
	assert.Equal(t, "boom", spans[1].Tag("error.msg"))
}
